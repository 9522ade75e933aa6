package email

import (
	"context"
)

type Service interface {
	SendOTP(ctx context.Context, email string, code string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
