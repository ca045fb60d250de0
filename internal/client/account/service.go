// Package account wraps the one-shot account and bookshelf calls that run
// outside the session bootstrap: mail and password calls over the
// request/response API, everything else over the realtime channel.
package account

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"

	v1 "github.com/dmitrijs2005/shelfkeeper/internal/contracts/realtime/v1"
)

// Mailer is the request/response side used by the account calls.
type Mailer interface {
	SendResetEmail(ctx context.Context, email, verificationToken string) error
	SendRegisterEmail(ctx context.Context, email, verificationToken string) error
	ResetPassword(ctx context.Context, email, newPassword, code string) error
}

// Caller invokes a method on the live realtime channel.
type Caller interface {
	Call(ctx context.Context, target string, payload, out any) error
}

// Shelf is the stored bookshelf. Item shapes are owned by the UI layer.
type Shelf struct {
	Data json.RawMessage `json:"data"`
	Ver  int             `json:"ver,omitempty"`
}

type Service struct {
	api     Mailer
	channel Caller
}

func NewService(api Mailer, channel Caller) *Service {
	return &Service{api: api, channel: channel}
}

func (s *Service) SendResetEmail(ctx context.Context, email, verificationToken string) error {
	if err := s.api.SendResetEmail(ctx, email, verificationToken); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (s *Service) SendRegisterEmail(ctx context.Context, email, verificationToken string) error {
	if err := s.api.SendRegisterEmail(ctx, email, verificationToken); err != nil {
		return fmt.Errorf("send register email: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, newPassword, code string) error {
	if err := s.api.ResetPassword(ctx, email, newPassword, code); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (s *Service) GetMyInfo(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := s.channel.Call(ctx, v1.MethodGetMyInfo, nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) GetReadHistory(ctx context.Context) ([]json.RawMessage, error) {
	var history []json.RawMessage
	if err := s.channel.Call(ctx, v1.MethodGetReadHistory, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Service) SaveBookShelf(ctx context.Context, shelf Shelf) error {
	if len(shelf.Data) == 0 {
		shelf.Data = json.RawMessage("[]")
	}
	return s.channel.Call(ctx, v1.MethodSaveBookShelf, shelf, nil)
}

// GetBookShelf fetches the shelf as gzip-compressed JSON (base64 on the wire).
func (s *Service) GetBookShelf(ctx context.Context) (Shelf, error) {
	var blob []byte
	if err := s.channel.Call(ctx, v1.MethodGetBookShelfBinaryGzip, nil, &blob); err != nil {
		return Shelf{}, err
	}
	if len(blob) == 0 {
		return Shelf{Data: json.RawMessage("[]")}, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return Shelf{}, fmt.Errorf("open shelf archive: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return Shelf{}, fmt.Errorf("inflate shelf: %w", err)
	}

	var shelf Shelf
	if err := json.Unmarshal(raw, &shelf); err != nil {
		return Shelf{}, fmt.Errorf("decode shelf: %w", err)
	}
	return shelf, nil
}

func (s *Service) ClearHistory(ctx context.Context) error {
	return s.channel.Call(ctx, v1.MethodClearHistory, nil, nil)
}

func (s *Service) SetAvatar(ctx context.Context, url string) error {
	return s.channel.Call(ctx, v1.MethodSetAvatar, url, nil)
}
