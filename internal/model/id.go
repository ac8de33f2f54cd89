package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Delivery IDs label event payloads observed in watch mode, where there is no
// hosting workflow run to borrow an identifier from.

var deliveryIDRegex = regexp.MustCompile(`^evt_[0-9]{10}_[0-9a-f]{8}$`)

// GenerateDeliveryID returns an id of the form evt_<unix10>_<hex8>.
func GenerateDeliveryID() (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return fmt.Sprintf("evt_%010d_%s", time.Now().Unix(), hex.EncodeToString(randomBytes)), nil
}

func ValidateDeliveryID(id string) bool {
	return deliveryIDRegex.MatchString(id)
}

// ParseDeliveryTimestamp extracts the embedded creation time.
func ParseDeliveryTimestamp(id string) (time.Time, error) {
	if !ValidateDeliveryID(id) {
		return time.Time{}, fmt.Errorf("invalid delivery ID format: %s", id)
	}
	ts, err := strconv.ParseInt(id[4:14], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp from delivery ID %s: %w", id, err)
	}
	return time.Unix(ts, 0), nil
}
