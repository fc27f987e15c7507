package http

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/ports"
	"github.com/layer-3/encryptme/service"
)

const readTimeout = service.DefaultReadTimeout

// Handlers contains the gateway HTTP handlers
type Handlers struct {
	authService *service.AuthService
	ledger      ports.Ledger
	vault       ports.BidVault
}

// NewHandlers creates new gateway handlers
func NewHandlers(authService *service.AuthService, ledger ports.Ledger, vault ports.BidVault) *Handlers {
	return &Handlers{
		authService: authService,
		ledger:      ledger,
		vault:       vault,
	}
}

type authRequest struct {
	From      common.Address `json:"from" binding:"required"`
	Nonce     uint64         `json:"nonce"`
	Deadline  uint64         `json:"deadline" binding:"required"`
	Signature hexutil.Bytes  `json:"signature" binding:"required"`
}

func (a authRequest) auth() core.Authorization {
	return core.Authorization{From: a.From, Nonce: a.Nonce, Deadline: a.Deadline, Signature: a.Signature}
}

func parseAddress(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func read[T any](c *gin.Context, op func(ctx context.Context) (T, error)) (T, bool) {
	v, err := await.WithTimeout(c.Request.Context(), readTimeout, op)
	if err != nil {
		abortWithError(c, err)
		return v, false
	}
	return v, true
}

// CreateSession registers a signed session and returns a bearer token
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		From      common.Address `json:"from" binding:"required"`
		Message   string         `json:"message" binding:"required"`
		Signature hexutil.Bytes  `json:"signature" binding:"required"`
		ExpiresAt uint64         `json:"expiresAt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, expires, err := h.authService.Login(c.Request.Context(), core.SessionRequest{
		From:      req.From,
		Message:   req.Message,
		Signature: req.Signature,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int64(time.Until(expires).Seconds()),
	})
}

// SessionStatus reports whether an address holds a ledger session
func (h *Handlers) SessionStatus(c *gin.Context) {
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	valid, ok := read(c, func(ctx context.Context) (bool, error) {
		return h.ledger.HasValidSession(ctx, addr)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "valid": valid})
}

// Account returns the registration record and nonce of an address
func (h *Handlers) Account(c *gin.Context) {
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	account, ok := read(c, func(ctx context.Context) (core.Account, error) {
		return h.ledger.AccountInfo(ctx, addr)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, account)
}

// Register handles registerUser
func (h *Handlers) Register(c *gin.Context) {
	var req struct {
		PublicKey common.Hash `json:"publicKey" binding:"required"`
		Auth      authRequest `json:"auth" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.ledger.RegisterUser(c.Request.Context(), core.RegisterUser{PublicKey: req.PublicKey, Auth: req.Auth.auth()}); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// Grant handles grantAccess
func (h *Handlers) Grant(c *gin.Context) {
	var req struct {
		Recipient common.Address `json:"recipient" binding:"required"`
		Auth      authRequest    `json:"auth" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.ledger.GrantAccess(c.Request.Context(), core.GrantAccess{Recipient: req.Recipient, Auth: req.Auth.auth()}); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": req.Recipient})
}

// Send handles sendMessage
func (h *Handlers) Send(c *gin.Context) {
	var req struct {
		Recipient common.Address `json:"recipient" binding:"required"`
		Content   common.Hash    `json:"content" binding:"required"`
		Proof     hexutil.Bytes  `json:"proof"`
		Auth      authRequest    `json:"auth" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	id, err := h.ledger.SendMessage(c.Request.Context(), core.SendMessage{
		Recipient: req.Recipient,
		Content:   req.Content,
		Proof:     req.Proof,
		Auth:      req.Auth.auth(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Decrypt handles decryptMessage
func (h *Handlers) Decrypt(c *gin.Context) {
	var req struct {
		MessageID uint64      `json:"messageId"`
		Auth      authRequest `json:"auth" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.ledger.DecryptMessage(c.Request.Context(), core.DecryptMessage{MessageID: req.MessageID, Auth: req.Auth.auth()}); err != nil {
		abortWithError(c, err)
		return
	}
	handle, ok := read(c, func(ctx context.Context) (common.Hash, error) {
		return h.ledger.EncryptedMessage(ctx, req.MessageID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.MessageID, "content": handle})
}

// MessageCount returns the total count, or the count addressed to ?address=
func (h *Handlers) MessageCount(c *gin.Context) {
	if raw := c.Query("address"); raw != "" {
		if !common.IsHexAddress(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
			return
		}
		addr := common.HexToAddress(raw)
		count, ok := read(c, func(ctx context.Context) (uint64, error) {
			return h.ledger.MessageCountFor(ctx, addr)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"address": addr, "count": count})
		return
	}
	count, ok := read(c, h.ledger.MessageCount)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// Message returns the metadata and content handle of a message
func (h *Handlers) Message(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}
	meta, ok := read(c, func(ctx context.Context) (core.MessageMetadata, error) {
		return h.ledger.MessageMetadata(ctx, id)
	})
	if !ok {
		return
	}
	handle, ok := read(c, func(ctx context.Context) (common.Hash, error) {
		return h.ledger.EncryptedMessage(ctx, id)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        id,
		"sender":    meta.Sender,
		"timestamp": meta.Timestamp.Unix(),
		"decrypted": meta.Decrypted,
		"content":   handle,
	})
}

// Me returns the authenticated address
func (h *Handlers) Me(c *gin.Context) {
	address, exists := caller(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

// Logout revokes the session behind the bearer token
func (h *Handlers) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// CommitBid commits a sealed bid for the caller
func (h *Handlers) CommitBid(c *gin.Context) {
	bidder, ok := caller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	var req struct {
		Hash common.Hash `json:"hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.vault.CommitBid(c.Request.Context(), bidder, req.Hash); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bidder": bidder, "hash": req.Hash})
}

// RevealBid opens the caller's commitment. The amount is a decimal string
// of base units; the salt is either 0x-prefixed 32 bytes or a short string.
func (h *Handlers) RevealBid(c *gin.Context) {
	bidder, ok := caller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	var req struct {
		Amount string `json:"amount" binding:"required"`
		Salt   string `json:"salt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}
	salt, err := digest.ParseSalt(req.Salt)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.vault.RevealBid(c.Request.Context(), bidder, amount, salt); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bidder": bidder, "revealed": true})
}

// CancelBid withdraws the caller's commitment
func (h *Handlers) CancelBid(c *gin.Context) {
	bidder, ok := caller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	if err := h.vault.CancelCommit(c.Request.Context(), bidder); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bidder": bidder, "cancelled": true})
}

// BidStatus returns the vault state of an address
func (h *Handlers) BidStatus(c *gin.Context) {
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	committed, ok := read(c, func(ctx context.Context) (bool, error) {
		return h.vault.IsCommitted(ctx, addr)
	})
	if !ok {
		return
	}
	status, ok := read(c, func(ctx context.Context) (service.BidStatus, error) {
		hash, revealed, err := h.vault.CommitOf(ctx, addr)
		return service.BidStatus{Committed: committed, Hash: hash, Revealed: revealed}, err
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, status)
}
