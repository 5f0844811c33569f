package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/skip2/go-qrcode"
)

// qrPayload is the JSON carried by generated merchant codes
type qrPayload struct {
	Name      string `json:"name"`
	UPIID     string `json:"upiId"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
}

type QRService struct {
	redis *redis.Client
	ttl   time.Duration
	size  int
}

// NewQRService builds the service. With a nil client generated codes are not
// cached and are resolved by decoding the payload.
func NewQRService(redisClient *redis.Client, ttl time.Duration, size int) *QRService {
	if size <= 0 {
		size = 256
	}
	return &QRService{redis: redisClient, ttl: ttl, size: size}
}

// GenerateMerchantQR encodes a merchant into a one-shot payload and a base64 PNG
func (s *QRService) GenerateMerchantQR(ctx context.Context, m models.Merchant) (string, string, error) {
	if !strings.Contains(m.UPIID, "@") {
		return "", "", fieldError("upiId", ErrInvalidTarget, "enter a valid UPI ID")
	}

	nonce, err := s.generateNonce()
	if err != nil {
		return "", "", err
	}

	jsonData, err := json.Marshal(qrPayload{
		Name:      m.Name,
		UPIID:     m.UPIID,
		Timestamp: time.Now().Unix(),
		Nonce:     nonce,
	})
	if err != nil {
		return "", "", err
	}

	qrCode := base64.URLEncoding.EncodeToString(jsonData)

	if s.redis != nil {
		if err := s.redis.Set(ctx, qrKey(qrCode), jsonData, s.ttl).Err(); err != nil {
			return "", "", fmt.Errorf("cache qr code: %w", err)
		}
	}

	qr, err := qrcode.New(qrCode, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.size)); err != nil {
		return "", "", err
	}

	return qrCode, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// PeekMerchant returns the payee of a scanned payload. Generated codes must
// still be cached; static UPI links and nonce-free payloads always decode.
func (s *QRService) PeekMerchant(ctx context.Context, payload string) (models.Merchant, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "upi://") {
		return parseUPILink(payload)
	}

	p, err := decodePayload(payload)
	if err != nil {
		return models.Merchant{}, err
	}

	if p.Nonce != "" && s.redis != nil {
		data, err := s.redis.Get(ctx, qrKey(payload)).Bytes()
		if err == redis.Nil {
			return models.Merchant{}, ErrInvalidQR
		}
		if err != nil {
			return models.Merchant{}, err
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return models.Merchant{}, ErrInvalidQR
		}
	}

	return merchantOf(p.Name, p.UPIID)
}

// ConsumeMerchant spends a generated code so it cannot pay twice.
// Payloads that were never cached are left alone.
func (s *QRService) ConsumeMerchant(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if s.redis == nil || strings.HasPrefix(payload, "upi://") {
		return nil
	}
	p, err := decodePayload(payload)
	if err != nil || p.Nonce == "" {
		return nil
	}
	if err := s.redis.Del(ctx, qrKey(payload)).Err(); err != nil {
		return fmt.Errorf("consume qr code: %w", err)
	}
	return nil
}

func decodePayload(payload string) (qrPayload, error) {
	var p qrPayload
	raw, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return p, ErrInvalidQR
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrInvalidQR
	}
	return p, nil
}

func parseUPILink(link string) (models.Merchant, error) {
	u, err := url.Parse(link)
	if err != nil {
		return models.Merchant{}, ErrInvalidQR
	}
	q := u.Query()
	return merchantOf(q.Get("pn"), q.Get("pa"))
}

func merchantOf(name, upiID string) (models.Merchant, error) {
	if !strings.Contains(upiID, "@") {
		return models.Merchant{}, ErrInvalidQR
	}
	return models.Merchant{Name: strings.TrimSpace(name), UPIID: upiID}, nil
}

func qrKey(code string) string {
	return "qr:" + code
}

func (s *QRService) generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
