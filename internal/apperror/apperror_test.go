package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(KindCredentialRejected, "probe", "invalid api key")
	wrapped := fmt.Errorf("saving key: %w", base)

	assert.Equal(t, KindCredentialRejected, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindCredentialRejected))
	assert.False(t, Is(wrapped, KindTransport))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindProvider, Op: "chat completion", Status: 429, Message: "rate limited"}
	assert.Equal(t, "chat completion: provider_error: status 429: rate limited", err.Error())

	inner := errors.New("dial tcp: connection refused")
	wrapped := Wrap(KindTransport, "", inner)
	assert.Equal(t, "transport_failure: dial tcp: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, inner)
}

func TestRemediationsAreDistinct(t *testing.T) {
	seen := map[string]Kind{}
	kinds := []Kind{
		KindMissingCredential, KindTransport, KindContentUnavailable,
		KindUnsupportedPage, KindMalformedResponse, KindPersistence, KindNoContent,
	}
	for _, k := range kinds {
		r := k.Remediation()
		if prev, dup := seen[r]; dup {
			t.Errorf("%s and %s share remediation %q", prev, k, r)
		}
		seen[r] = k
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, KindCredentialRejected.HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, KindUnsupportedPage.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, KindTransport.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindPersistence.HTTPStatus())
	assert.Equal(t, "unknown", Kind(99).String())
}
