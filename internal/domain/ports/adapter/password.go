package adapter

// PasswordHasher is the port for the password hashing primitive. Hashes are
// self-describing strings (algorithm, cost and salt embedded).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}
