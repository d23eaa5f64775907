package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateTrackingID produces a public tracking identifier of the form
// TRK-YYYYMMDD-NNNNNN. Uniqueness is enforced by the caller against the
// parcels table; on a collision simply generate again.
func GenerateTrackingID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken;
		// fall back to the clock so parcel creation still works.
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	return fmt.Sprintf("TRK-%s-%06d", time.Now().Format("20060102"), n.Int64())
}
