// Package ledger talks to the Shimmer-style node the wallet is anchored to:
// address/amount codecs, a thin HTTP client, and scrapers for the node's
// informal textual dumps.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freeswap/pkg/errors"
	"freeswap/pkg/logger"
)

// BalanceSnapshot is the node's view of an address at sync time.
type BalanceSnapshot struct {
	BaseCoin     CoinBalance
	NativeTokens []TokenBalance
}

type CoinBalance struct {
	Total     int64
	Available int64
}

type TokenBalance struct {
	ID        string
	Total     int64
	Available int64
}

// AvailableFor returns the available amount for a native token id, or the
// base coin when tokenID is empty.
func (b *BalanceSnapshot) AvailableFor(tokenID string) (int64, error) {
	if tokenID == "" {
		return b.BaseCoin.Available, nil
	}
	for _, t := range b.NativeTokens {
		if t.ID == tokenID {
			return t.Available, nil
		}
	}
	return 0, errors.ErrTokenNotFound
}

// Transfer is a submitted or observed ledger transfer.
type Transfer struct {
	ID        string `json:"txid"`
	Amount    int64  `json:"amount"`
	TokenID   string `json:"token_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Incoming  bool   `json:"incoming,omitempty"`
}

// TransferRequest is the signed payload shipped to the node. The wallet signs
// the essence before handing the request over; the client never sees keys.
type TransferRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	TokenID   string `json:"tokenId,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// Client is the HTTP client for a single ledger node.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

func NewClient(nodeURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(nodeURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// Balance fetches the balance snapshot for an address. When the node answers
// with a textual dump instead of JSON, the base-coin available amount is
// scraped from the dump and token balances are reported empty.
func (c *Client) Balance(ctx context.Context, address string) (*BalanceSnapshot, error) {
	body, err := c.get(ctx, "/api/v1/addresses/"+address+"/balance")
	if err != nil {
		return nil, err
	}

	var raw struct {
		BaseCoin struct {
			Total     string `json:"total"`
			Available string `json:"available"`
		} `json:"baseCoin"`
		NativeTokens []struct {
			ID        string `json:"id"`
			Total     string `json:"total"`
			Available string `json:"available"`
		} `json:"nativeTokens"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		// Legacy dump fallback.
		c.logger.Debug("Balance response is not JSON, scraping dump", map[string]interface{}{
			"address": address,
		})
		return &BalanceSnapshot{
			BaseCoin: CoinBalance{Available: ParseAvailableBalance(string(body))},
		}, nil
	}

	snap := &BalanceSnapshot{
		BaseCoin: CoinBalance{
			Total:     parseAmount(raw.BaseCoin.Total),
			Available: parseAmount(raw.BaseCoin.Available),
		},
	}
	for _, t := range raw.NativeTokens {
		snap.NativeTokens = append(snap.NativeTokens, TokenBalance{
			ID:        t.ID,
			Total:     parseAmount(t.Total),
			Available: parseAmount(t.Available),
		})
	}
	return snap, nil
}

// SubmitTransfer posts a signed transfer and returns the accepted transaction.
func (c *Client) SubmitTransfer(ctx context.Context, req *TransferRequest) (*Transfer, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrNodeUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(errors.ErrNodeUnavailable, err.Error())
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.classifyNodeError(resp.StatusCode, body)
	}

	var raw struct {
		TransactionID string `json:"transactionId"`
		Amount        string `json:"amount"`
		Timestamp     string `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some node builds echo the transfer object back as text.
		amount, ts, ok := ParseTransferReprint(string(body))
		if !ok {
			return nil, fmt.Errorf("undecodable transfer response: %q", truncate(string(body), 120))
		}
		ids, _ := ParseTransactionDump(string(body))
		tx := &Transfer{Amount: amount, Timestamp: ts}
		if len(ids) > 0 {
			tx.ID = ids[0]
		}
		return tx, nil
	}

	return &Transfer{
		ID:        raw.TransactionID,
		Amount:    parseAmount(raw.Amount),
		TokenID:   req.TokenID,
		Timestamp: parseAmount(raw.Timestamp),
	}, nil
}

// Transactions lists incoming transfers for an address, newest last.
func (c *Client) Transactions(ctx context.Context, address string) ([]Transfer, error) {
	body, err := c.get(ctx, "/api/v1/addresses/"+address+"/transactions")
	if err != nil {
		return nil, err
	}

	var raw struct {
		Transactions []struct {
			TransactionID string `json:"transactionId"`
			Amount        string `json:"amount"`
			TokenID       string `json:"tokenId"`
			Timestamp     string `json:"timestamp"`
			Incoming      bool   `json:"incoming"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		ids, amounts := ParseTransactionDump(string(body))
		transfers := make([]Transfer, 0, len(ids))
		for i, id := range ids {
			t := Transfer{ID: id, Incoming: true}
			if i < len(amounts) {
				t.Amount = amounts[i]
			}
			transfers = append(transfers, t)
		}
		return transfers, nil
	}

	transfers := make([]Transfer, 0, len(raw.Transactions))
	for _, t := range raw.Transactions {
		transfers = append(transfers, Transfer{
			ID:        t.TransactionID,
			Amount:    parseAmount(t.Amount),
			TokenID:   t.TokenID,
			Timestamp: parseAmount(t.Timestamp),
			Incoming:  t.Incoming,
		})
	}
	return transfers, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrNodeUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(errors.ErrNodeUnavailable, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyNodeError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) classifyNodeError(status int, body []byte) error {
	msg := string(body)
	var raw struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &raw) == nil && raw.Error != "" {
		msg = raw.Error
	}

	switch {
	case strings.Contains(strings.ToLower(msg), "insufficient"):
		return errors.Wrap(errors.ErrInsufficientBalance, msg)
	case status >= 500:
		return errors.Wrap(errors.ErrNodeUnavailable, fmt.Sprintf("node returned %d: %s", status, truncate(msg, 200)))
	default:
		return fmt.Errorf("node returned %d: %s", status, truncate(msg, 200))
	}
}

// parseAmount accepts the node's decimal strings and the hex form used for
// native token amounts.
func parseAmount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0
		}
		return v
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
