package entity

// Identity is the caller resolved by the identity provider.
type Identity struct {
	Subject string
	Email   string
}
