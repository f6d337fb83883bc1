//go:build !unix

package location

import "os"

func probePort(port string) error {
	f, err := os.Open(port)
	if err != nil {
		return err
	}
	return f.Close()
}
