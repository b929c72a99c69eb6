package utils

// MaskSecret renders a credential safe for log output. Only the first four
// characters survive.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
