package domain

// Cipher is an authenticated file cipher. DecryptFile must not leave any
// output behind when verification fails.
type Cipher interface {
	EncryptFile(key []byte, sourcePath, destPath string) error
	DecryptFile(key []byte, sourcePath, destPath string) error
}
