package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCryptoPayCreateInvoice(t *testing.T) {
	var got createInvoiceBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/createInvoice", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "tok", r.Header.Get(tokenHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":77,"status":"active","payload":"42","bot_invoice_url":"https://t.me/CryptoBot?start=IV77"}}`))
	}))
	defer srv.Close()

	c := NewCryptoPayClient(srv.URL+"/api/", "tok", srv.Client())
	inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		Asset: "USDT", Amount: "1.5", Description: "combo", Payload: "42",
		PaidBtnName: "callback", PaidBtnURL: "https://t.me/combobot?start=paid_42",
	})
	require.NoError(t, err)
	require.Equal(t, Invoice{ID: 77, Status: StatusPending, Payload: "42", PayURL: "https://t.me/CryptoBot?start=IV77"}, inv)
	require.Equal(t, "USDT", got.Asset)
	require.Equal(t, "1.5", got.Amount)
	require.Equal(t, "https://t.me/combobot?start=paid_42", got.PaidBtnURL)
}

func TestCryptoPayGetInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getInvoices", r.URL.Path)
		switch r.URL.Query().Get("invoice_ids") {
		case "5":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":5,"status":"paid","payload":"9"}]}}`))
		case "6":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[]}}`))
		case "7":
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error":{"code":400,"name":"INVOICE_IDS_INVALID"}}`))
		}
	}))
	defer srv.Close()

	c := NewCryptoPayClient(srv.URL, "tok", srv.Client())
	ctx := context.Background()

	inv, err := c.GetInvoice(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.Status)
	require.Equal(t, "9", inv.Payload)

	_, err = c.GetInvoice(ctx, 6)
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = c.GetInvoice(ctx, 7)
	require.ErrorIs(t, err, ErrMalformedResponse)

	_, err = c.GetInvoice(ctx, 8)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "INVOICE_IDS_INVALID", apiErr.Name)
	require.False(t, apiErr.Temporary())
}

func TestCryptoPayMalformedReplies(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"result":{"invoice_id":1,"status":"paid"}}`,
		`{"ok":true}`,
		`{"ok":true,"result":{"status":"paid"}}`,
		`{"ok":true,"result":{"invoice_id":1}}`,
		`{"ok":true,"result":{"invoice_id":1,"status":"active"}}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewCryptoPayClient(srv.URL, "tok", srv.Client())
		_, err := c.CreateInvoice(context.Background(), InvoiceRequest{Asset: "USDT", Amount: "1"})
		srv.Close()
		require.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestCryptoPayServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewCryptoPayClient(srv.URL, "tok", srv.Client()).GetInvoice(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.True(t, apiErr.Temporary())
}

func TestParseStatus(t *testing.T) {
	require.Equal(t, StatusPending, ParseStatus("active"))
	require.Equal(t, StatusPending, ParseStatus("PENDING"))
	require.Equal(t, StatusRefunded, ParseStatus("refunded"))
	st := ParseStatus("on_hold")
	require.True(t, st.IsUnknown())
	require.Equal(t, "on_hold", st.Raw())
	require.Equal(t, "unknown(on_hold)", st.String())
	require.NotEqual(t, StatusPaid, st)
}
