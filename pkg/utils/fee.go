package utils

// Delivery fee parameters. The fee is computed once when the parcel is
// created and never recomputed afterwards.
const (
	BaseFee   = 50.0
	PerKgRate = 20.0
)

// CalculateFee returns the delivery fee for a parcel of the given weight in
// kilograms.
func CalculateFee(weight float64) float64 {
	return BaseFee + weight*PerKgRate
}
