package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func testAddress() types.Address {
	return types.Address{
		ID:        "addr-1",
		Recipient: "Lan",
		Phone:     "0900000000",
		Line1:     "12 Ly Thuong Kiet",
		Ward:      "Ward 1",
		District:  "District 1",
		Province:  "Ho Chi Minh",
	}
}

func TestClientFetchFeeRequest(t *testing.T) {
	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		var payload struct {
			Address types.Address `json:"address"`
			Items   []Line        `json:"items"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if payload.Address.ID != "addr-1" {
			t.Fatalf("unexpected address %+v", payload.Address)
		}
		if len(payload.Items) != 2 || payload.Items[0].ItemID != "a1" || payload.Items[1].Quantity != 3 {
			t.Fatalf("unexpected items %+v", payload.Items)
		}
		return jsonResponse(http.StatusOK, `{"fees":{"A":{"amount":"15000","currency":"VND"}}}`), nil
	})

	client, err := NewClient("http://fees.test/v1/", WithAPIKey("secret"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	quote, err := client.FetchFee(context.Background(), ItemsRequest{
		Address: testAddress(),
		Lines: []Line{
			{ItemID: "a1", ShopID: "A", Quantity: 1},
			{ItemID: "a2", ShopID: "A", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("fetch fee: %v", err)
	}
	if capturedURL != "http://fees.test/v1/fees" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("X-Api-Key") != "secret" {
		t.Fatalf("api key header missing")
	}
	if capturedHeaders.Get("Content-Type") != "application/json" {
		t.Fatalf("content type missing")
	}
	fee, ok := quote["A"]
	if !ok {
		t.Fatalf("expected fee for shop A, got %+v", quote)
	}
	if fee.Amount.String() != "15000" || fee.Currency != "VND" {
		t.Fatalf("unexpected fee %+v", fee)
	}
}

func TestClientFetchCheckoutFeeDefaultsCurrency(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		var payload CheckoutRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if len(payload.Shops["B"]) != 1 {
			t.Fatalf("unexpected shops %+v", payload.Shops)
		}
		return jsonResponse(http.StatusOK, `{"fees":{"B":{"amount":25000}}}`), nil
	})

	client, err := NewClient("http://fees.test", WithDefaultCurrency("usd"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	quote, err := client.FetchCheckoutFee(context.Background(), CheckoutRequest{
		Address: testAddress(),
		Shops:   map[string][]Line{"B": {{ItemID: "b1", ShopID: "B", Quantity: 1}}},
	})
	if err != nil {
		t.Fatalf("fetch checkout fee: %v", err)
	}
	if capturedURL != "http://fees.test/fees/checkout" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if quote["B"].Currency != "USD" {
		t.Fatalf("expected default currency, got %q", quote["B"].Currency)
	}
}

func TestClientUnsupportedAddress(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":"out of coverage"}`), nil
	})
	client, err := NewClient("http://fees.test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchFee(context.Background(), ItemsRequest{
		Address: testAddress(),
		Lines:   []Line{{ItemID: "a1", ShopID: "A", Quantity: 1}},
	})
	if !IsUnsupported(err) {
		t.Fatalf("expected unsupported address error, got %v", err)
	}
}

func TestClientUpstreamFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, "bad gateway"), nil
	})
	client, err := NewClient("http://fees.test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchFee(context.Background(), ItemsRequest{
		Address: testAddress(),
		Lines:   []Line{{ItemID: "a1", ShopID: "A", Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if IsUnsupported(err) {
		t.Fatalf("upstream failure must not read as unsupported")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestClientTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, boom
	})
	client, err := NewClient("http://fees.test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchFee(context.Background(), ItemsRequest{
		Address: testAddress(),
		Lines:   []Line{{ItemID: "a1", ShopID: "A", Quantity: 1}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestClientRejectsNegativeFee(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"fees":{"A":{"amount":"-1","currency":"VND"}}}`), nil
	})
	client, err := NewClient("http://fees.test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.FetchFee(context.Background(), ItemsRequest{
		Address: testAddress(),
		Lines:   []Line{{ItemID: "a1", ShopID: "A", Quantity: 1}},
	}); err == nil {
		t.Fatalf("expected error for negative fee")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for blank base url")
	}
}

func TestClientRejectsEmptyRequests(t *testing.T) {
	client, err := NewClient("http://fees.test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.FetchFee(context.Background(), ItemsRequest{Address: testAddress()}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.FetchCheckoutFee(context.Background(), CheckoutRequest{Address: testAddress()}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
