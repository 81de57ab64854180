package signer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, 5*time.Second, &logger.EmptyLogger{})
	return client, server
}

func TestCheckSignatureReady(t *testing.T) {
	var gotRequest signatureRequest
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/signatures/check", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(signatureResponse{
			Success:       true,
			Signature:     "0xdeadbeef",
			SignedAt:      1700000000,
			ExpiresAt:     1700000600,
			SignerAddress: "0x1111111111111111111111111111111111111111",
		})
	})
	defer server.Close()

	intentID := models.IntentID{0x42}
	record, err := client.CheckSignature(context.Background(), intentID, common.HexToHash("0xabc"))
	require.NoError(t, err)

	assert.Equal(t, intentID.Hex(), gotRequest.IntentID)
	assert.True(t, record.Ready)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, record.Signature)
	assert.Equal(t, int64(1700000000), record.SignedAt.Unix())
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, int64(1700000600), record.ExpiresAt.Unix())
	require.NotNil(t, record.Signer)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), *record.Signer)
}

func TestCheckSignatureNotFoundIsNotAnError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	record, err := client.CheckSignature(context.Background(), models.IntentID{0x42}, common.Hash{})
	require.NoError(t, err, "a missing signature is a normal polling outcome")
	require.NotNil(t, record)
	assert.False(t, record.Ready)
}

func TestCheckSignaturePendingResponse(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(signatureResponse{Success: false})
	})
	defer server.Close()

	record, err := client.CheckSignature(context.Background(), models.IntentID{0x42}, common.Hash{})
	require.NoError(t, err)
	assert.False(t, record.Ready)
}

func TestCheckSignatureServerFailure(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.CheckSignature(context.Background(), models.IntentID{0x42}, common.Hash{})
	assert.ErrorIs(t, err, ErrServerFailure)
}

func TestCheckSignatureMalformedResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unexpected status code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			},
		},
		{
			name: "invalid json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "ready without signature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(signatureResponse{Success: true})
			},
		},
		{
			name: "invalid signer address",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(signatureResponse{
					Success:       true,
					Signature:     "0xdeadbeef",
					SignerAddress: "not-an-address",
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(tt.handler)
			defer server.Close()

			_, err := client.CheckSignature(context.Background(), models.IntentID{0x42}, common.Hash{})
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPing(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()
	assert.NoError(t, client.Ping(context.Background()))

	failing, failServer := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer failServer.Close()
	assert.ErrorIs(t, failing.Ping(context.Background()), ErrServerFailure)
}
