package memkv

import (
	"testing"

	"github.com/mattsta/kvidxkit/kvidx"
	"github.com/mattsta/kvidxkit/kvidx/conformance"
)

func TestConformance(t *testing.T) {
	conformance.Run(t, func(t *testing.T) kvidx.Conn {
		return Open(kvidx.DefaultConfig())
	})
}
