package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeValidate(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name    string
		env     Envelope
		wantErr string
	}{
		{"hello", Envelope{V: Version, Type: TypeHello, TS: now}, ""},
		{"invoke", Envelope{V: Version, Type: TypeInvoke, ID: "01H", Target: MethodGetMyInfo}, ""},
		{"result", Envelope{V: Version, Type: TypeResult, ID: "01H"}, ""},
		{"error without id", Envelope{V: Version, Type: TypeError}, ""},
		{"missing version", Envelope{Type: TypeHello}, "missing field: v"},
		{"wrong version", Envelope{V: "v2", Type: TypeHello}, "unsupported protocol version"},
		{"missing type", Envelope{V: Version}, "missing field: type"},
		{"unknown type", Envelope{V: Version, Type: "ping"}, "unknown type"},
		{"invoke without id", Envelope{V: Version, Type: TypeInvoke, Target: MethodGetMyInfo}, "missing field: id"},
		{"invoke without target", Envelope{V: Version, Type: TypeInvoke, ID: "01H"}, "missing field: target"},
		{"result without id", Envelope{V: Version, Type: TypeResult}, "missing field: id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEnvelopeWireNames(t *testing.T) {
	env := Envelope{
		V:       Version,
		Type:    TypeInvoke,
		ID:      "01H",
		Target:  MethodGetMyInfo,
		Payload: json.RawMessage(`{"a":1}`),
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "v1", m["v"])
	require.Equal(t, "invoke", m["type"])
	require.Equal(t, "GetMyInfo", m["target"])
	require.Equal(t, map[string]any{"a": float64(1)}, m["payload"])
}
