package chainledger

// ChatABI is the chat contract interface this client speaks. Every privileged
// entry point, registerUser included, takes the nonce, deadline and signature
// last, and the sendMessage digest covers content and keccak256(proof).
const ChatABI = `[
  {"type":"function","name":"createSession","stateMutability":"nonpayable","inputs":[{"name":"message","type":"string"},{"name":"signature","type":"bytes"},{"name":"expiresAt","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"hasValidSession","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"registerUser","stateMutability":"nonpayable","inputs":[{"name":"publicKey","type":"bytes32"},{"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"signature","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"grantAccess","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"signature","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"sendMessage","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"encryptedContent","type":"bytes32"},{"name":"contentProof","type":"bytes"},{"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"signature","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"decryptMessage","stateMutability":"nonpayable","inputs":[{"name":"messageId","type":"uint256"},{"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"signature","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"getMessageCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMessageCountFor","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMessageMetadata","stateMutability":"view","inputs":[{"name":"messageId","type":"uint256"}],"outputs":[{"name":"sender","type":"address"},{"name":"timestamp","type":"uint256"},{"name":"isDecrypted","type":"bool"}]},
  {"type":"function","name":"getEncryptedMessage","stateMutability":"view","inputs":[{"name":"messageId","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"users","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"isRegistered","type":"bool"},{"name":"publicKey","type":"bytes32"},{"name":"nonce","type":"uint256"}]}
]`

// VaultABI is the BidVault interface
const VaultABI = `[
  {"type":"function","name":"commitBid","stateMutability":"nonpayable","inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"revealBid","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"salt","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"cancelCommit","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"isCommitted","stateMutability":"view","inputs":[{"name":"bidder","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"hasRevealed","stateMutability":"view","inputs":[{"name":"bidder","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"commitOf","stateMutability":"view","inputs":[{"name":"bidder","type":"address"}],"outputs":[{"name":"hash","type":"bytes32"},{"name":"revealed","type":"bool"}]},
  {"type":"event","name":"BidCommitted","inputs":[{"name":"bidder","type":"address","indexed":true},{"name":"hash","type":"bytes32","indexed":false}],"anonymous":false},
  {"type":"event","name":"BidRevealed","inputs":[{"name":"bidder","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"salt","type":"bytes32","indexed":false}],"anonymous":false},
  {"type":"event","name":"BidCancelled","inputs":[{"name":"bidder","type":"address","indexed":true}],"anonymous":false}
]`
