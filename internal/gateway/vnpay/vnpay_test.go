package vnpay

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testClient() *Client {
	return New(Config{
		TmnCode:    "TESTTMN",
		HashSecret: "test-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://shop.example.com/payments/return",
	})
}

func TestBuildPaymentURL_SignatureVerifiesRoundTrip(t *testing.T) {
	c := testClient()

	raw := c.BuildPaymentURL(PaymentRequest{
		PaymentID: 42,
		Amount:    250000,
		OrderInfo: "payment for order ORD20250101-AAAA",
		IPAddr:    "203.0.113.9",
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	})

	u, err := url.Parse(raw)
	assert.NoError(t, err)

	values := u.Query()
	assert.Equal(t, "2.1.0", values.Get("vnp_Version"))
	assert.Equal(t, "pay", values.Get("vnp_Command"))
	assert.Equal(t, "TESTTMN", values.Get("vnp_TmnCode"))
	// 金額は100倍で載る
	assert.Equal(t, "25000000", values.Get("vnp_Amount"))
	assert.Equal(t, "42", values.Get("vnp_TxnRef"))
	assert.Equal(t, "20250101120000", values.Get("vnp_CreateDate"))
	assert.NotEmpty(t, values.Get("vnp_SecureHash"))

	// 作ったURLのパラメータはそのまま署名検証を通る
	assert.NoError(t, c.VerifyCallback(values))
}

func TestVerifyCallback_TamperedAmount_Fails(t *testing.T) {
	c := testClient()

	raw := c.BuildPaymentURL(PaymentRequest{
		PaymentID: 42,
		Amount:    250000,
		OrderInfo: "x",
		IPAddr:    "203.0.113.9",
		CreatedAt: time.Now(),
	})

	u, _ := url.Parse(raw)
	values := u.Query()
	values.Set("vnp_Amount", "100")

	assert.ErrorIs(t, c.VerifyCallback(values), ErrInvalidSignature)
}

func TestVerifyCallback_MissingHash_Fails(t *testing.T) {
	c := testClient()

	values := url.Values{}
	values.Set("vnp_TxnRef", "42")

	assert.ErrorIs(t, c.VerifyCallback(values), ErrInvalidSignature)
}

func TestVerifyCallback_WrongSecret_Fails(t *testing.T) {
	c := testClient()
	other := New(Config{TmnCode: "TESTTMN", HashSecret: "another-secret", PayURL: "x", ReturnURL: "y"})

	raw := other.BuildPaymentURL(PaymentRequest{
		PaymentID: 1,
		Amount:    1000,
		OrderInfo: "x",
		IPAddr:    "127.0.0.1",
		CreatedAt: time.Now(),
	})

	u, _ := url.Parse(raw)
	assert.ErrorIs(t, c.VerifyCallback(u.Query()), ErrInvalidSignature)
}

func TestVerifyCallback_UppercaseHash_OK(t *testing.T) {
	c := testClient()

	raw := c.BuildPaymentURL(PaymentRequest{
		PaymentID: 1,
		Amount:    1000,
		OrderInfo: "x",
		IPAddr:    "127.0.0.1",
		CreatedAt: time.Now(),
	})

	u, _ := url.Parse(raw)
	values := u.Query()
	values.Set("vnp_SecureHash", strings.ToUpper(values.Get("vnp_SecureHash")))

	assert.NoError(t, c.VerifyCallback(values))
}

func TestResponseOutcome(t *testing.T) {
	ok, msg := ResponseOutcome("00")
	assert.True(t, ok)
	assert.Equal(t, "approved", msg)

	ok, msg = ResponseOutcome("24")
	assert.False(t, ok)
	assert.Equal(t, "cancelled by customer", msg)

	// 未知コードは失敗扱い
	ok, msg = ResponseOutcome("99")
	assert.False(t, ok)
	assert.Equal(t, "transaction failed", msg)
}

func TestMinorAmount(t *testing.T) {
	assert.Equal(t, int64(25000000), MinorAmount(250000))
}
