package model

// PasswordHasher hashes candidate passwords and verifies them against
// stored credential material.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}
