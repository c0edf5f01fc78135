package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("VERDANTRX_TEST_MODE") == "" {
			_ = os.Setenv("VERDANTRX_TEST_MODE", "1")
		}
	})
}
