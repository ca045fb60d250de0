package tokens

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolatile_EmptyUntilSet(t *testing.T) {
	v := NewVolatile()
	assert.Equal(t, "", v.Get())

	v.Set("S1")
	assert.Equal(t, "S1", v.Get())

	v.Set("S2")
	assert.Equal(t, "S2", v.Get(), "Set overwrites")

	v.Clear()
	assert.Equal(t, "", v.Get())
}

func TestVolatile_ConcurrentAccess(t *testing.T) {
	v := NewVolatile()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v.Set(fmt.Sprintf("S%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = v.Get()
		}()
	}
	wg.Wait()

	assert.Regexp(t, `^S\d+$`, v.Get())
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  time.Time
	}{
		{name: "jwt with exp", token: signed, want: exp},
		{name: "jwt without exp", token: noExp},
		{name: "opaque", token: "S1"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpiresAt(tt.token)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}
