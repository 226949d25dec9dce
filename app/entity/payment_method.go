package entity

import "time"

const TerminalClover = "clover"

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

func ValidEnvironment(env string) bool {
	return env == EnvironmentSandbox || env == EnvironmentProduction
}

type PaymentMethod struct {
	ID uint64

	Name               string
	UsePaymentTerminal string
	Environment        string

	MerchantID *string
	DeviceID   *string

	AppID     *string
	AppSecret *string

	AccessToken       *string
	RefreshToken      *string
	TokenExpiry       *time.Time
	AuthorizationCode *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *PaymentMethod) IsClover() bool {
	return m != nil && m.UsePaymentTerminal == TerminalClover
}

func (m *PaymentMethod) HasAccessToken() bool {
	return m != nil && m.AccessToken != nil && *m.AccessToken != ""
}
