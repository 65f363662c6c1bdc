package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/phylax-agent/internal/domain"
)

func TestSecretBox(t *testing.T) {
	Convey("Given a SecretBox and a generated key", t, func() {
		box := NewSecretBox()
		key, err := GenerateKey()
		So(err, ShouldBeNil)

		tempDir, err := os.MkdirTemp("", "secretbox_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		plainPath := filepath.Join(tempDir, "shop.sql.gz")
		encPath := plainPath + domain.EncryptedSuffix
		outPath := filepath.Join(tempDir, "decrypted.sql.gz")

		Convey("Encrypt then decrypt returns the original bytes", func() {
			for _, size := range []int{0, 1, 4096, 1 << 20} {
				payload := make([]byte, size)
				_, err := rand.Read(payload)
				So(err, ShouldBeNil)
				So(os.WriteFile(plainPath, payload, 0600), ShouldBeNil)

				So(box.EncryptFile([]byte(key), plainPath, encPath), ShouldBeNil)

				sealed, err := os.ReadFile(encPath)
				So(err, ShouldBeNil)
				if size > 0 {
					So(bytes.Contains(sealed, payload), ShouldBeFalse)
				}

				So(box.DecryptFile([]byte(key), encPath, outPath), ShouldBeNil)
				got, err := os.ReadFile(outPath)
				So(err, ShouldBeNil)
				So(bytes.Equal(got, payload), ShouldBeTrue)
				So(os.Remove(outPath), ShouldBeNil)
			}
		})

		Convey("Decrypting with a different key fails without output", func() {
			So(os.WriteFile(plainPath, []byte("secret rows"), 0600), ShouldBeNil)
			So(box.EncryptFile([]byte(key), plainPath, encPath), ShouldBeNil)

			otherKey, err := GenerateKey()
			So(err, ShouldBeNil)

			err = box.DecryptFile([]byte(otherKey), encPath, outPath)
			So(errors.Is(err, domain.ErrDecryption), ShouldBeTrue)

			_, statErr := os.Stat(outPath)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})

		Convey("Corrupted ciphertext fails verification", func() {
			So(os.WriteFile(plainPath, []byte("secret rows"), 0600), ShouldBeNil)
			So(box.EncryptFile([]byte(key), plainPath, encPath), ShouldBeNil)

			sealed, err := os.ReadFile(encPath)
			So(err, ShouldBeNil)
			sealed[len(sealed)-1] ^= 0xff
			So(os.WriteFile(encPath, sealed, 0600), ShouldBeNil)

			err = box.DecryptFile([]byte(key), encPath, outPath)
			So(errors.Is(err, domain.ErrDecryption), ShouldBeTrue)
		})

		Convey("A truncated file is rejected", func() {
			So(os.WriteFile(encPath, []byte("short"), 0600), ShouldBeNil)
			err := box.DecryptFile([]byte(key), encPath, outPath)
			So(errors.Is(err, domain.ErrDecryption), ShouldBeTrue)
		})

		Convey("A malformed key is a configuration error", func() {
			So(os.WriteFile(plainPath, []byte("x"), 0600), ShouldBeNil)
			err := box.EncryptFile([]byte("not-a-key"), plainPath, encPath)
			So(errors.Is(err, domain.ErrConfigMissing), ShouldBeTrue)
		})
	})
}
