package openvpn

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KeyFile is the private-key member of the certificate bundle. It is the
// only bundle file restricted to owner read/write.
const KeyFile = "as.key"

// CopyCertBundle copies the certificate-bundle files from srcDir into dstDir.
// The private key gets mode 0600, everything else 0644.
func CopyCertBundle(srcDir, dstDir string, files []string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("failed to create certificate directory: %w", err)
	}

	for _, name := range files {
		perm := os.FileMode(0o644)
		if isPrivateKey(name) {
			perm = 0o600
		}
		if err := copyFile(filepath.Join(srcDir, name), filepath.Join(dstDir, name), perm); err != nil {
			return err
		}
	}

	return nil
}

func isPrivateKey(name string) bool {
	return name == KeyFile || strings.HasSuffix(name, ".key")
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// The file may have pre-existed with different permissions
	if err := os.Chmod(dst, perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}

	return nil
}
