package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber creates a human readable order number.
// Format: ORD-YYYYMMDD-HHMMSS-XXXX
func GenerateOrderNumber(now time.Time) string {
	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	return fmt.Sprintf("ORD-%s-%s-%s", datePart, timePart, randomString(codeAlphabet, 4))
}

// GenerateTicketCode creates the scannable code printed in the ticket QR.
func GenerateTicketCode() string {
	return "TKT-" + randomString(codeAlphabet, 10)
}

// GenerateActivationCode creates the short numeric code handed out for cash sales.
func GenerateActivationCode(length int) string {
	if length <= 0 {
		length = 6
	}
	return randomString("0123456789", length)
}

func randomString(alphabet string, length int) string {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(fmt.Sprintf("read random: %v", err))
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}
