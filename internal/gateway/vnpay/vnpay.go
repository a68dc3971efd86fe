package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// プロトコル固定値
const (
	version   = "2.1.0"
	command   = "pay"
	currCode  = "VND"
	locale    = "vn"
	orderType = "other"

	// ゲートウェイの成功コードはこれだけ。未知コードは必ず失敗扱い。
	ResponseCodeSuccess = "00"
)

// 失敗コード→ユーザー向けメッセージ（監査用に保持する）
var responseMessages = map[string]string{
	"07": "suspicious transaction",
	"09": "card not registered for online payment",
	"10": "authentication failed too many times",
	"11": "payment window expired",
	"12": "card or account locked",
	"13": "wrong OTP",
	"24": "cancelled by customer",
	"51": "insufficient funds",
	"65": "daily limit exceeded",
	"75": "bank under maintenance",
	"79": "wrong payment password too many times",
}

var ErrInvalidSignature = errors.New("invalid signature")

type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// 署名付きリクエストの組み立てとコールバック検証だけを担当。
// 秘密鍵は起動時に注入し、ここ以外では触らない。
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

type PaymentRequest struct {
	//内部PaymentのID。vnp_TxnRefとして往復する参照。
	PaymentID int64
	//内部の金額。ゲートウェイには100倍して渡す。
	Amount    int64
	OrderInfo string
	IPAddr    string
	CreatedAt time.Time
}

// ゲートウェイの最小単位（×100）
func MinorAmount(amount int64) int64 {
	return amount * 100
}

// リダイレクト先の署名付きURLを組み立てる。
// キー昇順＋URLエンコードの正規形（url.Values.Encode）に対してHMAC-SHA512。
func (c *Client) BuildPaymentURL(req PaymentRequest) string {
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(MinorAmount(req.Amount), 10))
	params.Set("vnp_CurrCode", currCode)
	params.Set("vnp_TxnRef", strconv.FormatInt(req.PaymentID, 10))
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", orderType)
	params.Set("vnp_Locale", locale)
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.IPAddr)
	params.Set("vnp_CreateDate", req.CreatedAt.Format("20060102150405"))

	query := params.Encode()
	return c.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + c.sign(query)
}

// コールバックの署名検証。
// vnp_SecureHash（と付随のHashType）を除いた残りを同じ正規形で署名し直し、
// バイト単位で比較する。不一致なら何も処理してはいけない。
func (c *Client) VerifyCallback(values url.Values) error {
	received := values.Get("vnp_SecureHash")
	if received == "" {
		return ErrInvalidSignature
	}

	rest := url.Values{}
	for k, vs := range values {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		for _, v := range vs {
			rest.Add(k, v)
		}
	}

	expected := c.sign(rest.Encode())
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// レスポンスコードを内部判定に変換。成功は"00"のみ。
func ResponseOutcome(code string) (bool, string) {
	if code == ResponseCodeSuccess {
		return true, "approved"
	}
	if msg, ok := responseMessages[code]; ok {
		return false, msg
	}
	return false, "transaction failed"
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
