package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway/vnpay"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// 決済セッションの有効期限
const paymentSessionTTL = 30 * time.Minute

type PaymentUsecase struct {
	tx      repo.TransactionManager
	gateway *vnpay.Client
}

func NewPaymentUsecase(tx repo.TransactionManager, gateway *vnpay.Client) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, gateway: gateway}
}

type InitiatePaymentInput struct {
	OrderID  int64
	ClientIP string
}

type InitiatePaymentOutput struct {
	PaymentID   int64  `json:"payment_id"`
	PaymentURL  string `json:"payment_url"`
	OrderID     int64  `json:"order_id"`
	Amount      int64  `json:"amount"`
	OrderNumber string `json:"order_number"`
}

// 決済開始。PENDINGの注文に対してPaymentを作り、署名付きURLを返す。
// 同じ注文にPENDINGのPaymentが残っている間は新規開始を拒否する。
func (u *PaymentUsecase) InitiatePayment(ctx context.Context, userID int64, in InitiatePaymentInput) (InitiatePaymentOutput, error) {
	if userID <= 0 {
		return InitiatePaymentOutput{}, newUnauthorized()
	}
	if in.OrderID <= 0 {
		return InitiatePaymentOutput{}, newValidationError("invalid order_id")
	}

	var out InitiatePaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if o.UserID != userID {
			return newNotFound()
		}

		if o.Status != model.OrderStatusPending {
			return newValidationError("order is not pending")
		}

		if _, found, err := r.Payments().FindPendingByOrderID(ctx, o.ID); err != nil {
			return newDBError()
		} else if found {
			return newConflict("payment already in progress")
		}

		now := time.Now()
		paymentID, err := r.Payments().Create(ctx, model.Payment{
			OrderID:          o.ID,
			Amount:           o.TotalAmount,
			Method:           model.PaymentMethodVNPay,
			Status:           model.PaymentStatusPending,
			SessionToken:     strings.ReplaceAll(uuid.NewString(), "-", ""),
			SessionExpiresAt: now.Add(paymentSessionTTL),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return newDBError()
		}

		payURL := u.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			PaymentID: paymentID,
			Amount:    o.TotalAmount,
			OrderInfo: "payment for order " + o.OrderNumber,
			IPAddr:    in.ClientIP,
			CreatedAt: now,
		})

		if err := r.Payments().UpdateFields(ctx, paymentID, map[string]interface{}{
			"payment_url": payURL,
		}); err != nil {
			return newDBError()
		}

		if err := r.Orders().UpdateFields(ctx, o.ID, map[string]interface{}{
			"payment_method": string(model.PaymentMethodVNPay),
			"payment_status": model.PaymentStatusPending,
		}); err != nil {
			return newDBError()
		}

		out = InitiatePaymentOutput{
			PaymentID:   paymentID,
			PaymentURL:  payURL,
			OrderID:     o.ID,
			Amount:      o.TotalAmount,
			OrderNumber: o.OrderNumber,
		}
		return nil
	})

	if err != nil {
		return InitiatePaymentOutput{}, err
	}
	return out, nil
}

// ワンタイムセッションでの再入。使用済み・期限切れは拒否する。
// 有効なら消費して既存の決済URLを返す。
func (u *PaymentUsecase) ResumePayment(ctx context.Context, userID int64, token string) (InitiatePaymentOutput, error) {
	if userID <= 0 {
		return InitiatePaymentOutput{}, newUnauthorized()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return InitiatePaymentOutput{}, newValidationError("invalid session token")
	}

	var out InitiatePaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, found, err := r.Payments().FindBySessionToken(ctx, token)
		if err != nil {
			return newDBError()
		}
		if !found {
			return newNotFound()
		}

		o, err := r.Orders().FindByID(ctx, p.OrderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if o.UserID != userID {
			return newNotFound()
		}

		if p.Status != model.PaymentStatusPending || !p.SessionValid(time.Now()) {
			return newValidationError("payment session expired")
		}

		//ワンタイムなのでここで消費
		if err := r.Payments().UpdateFields(ctx, p.ID, map[string]interface{}{
			"session_used": true,
		}); err != nil {
			return newDBError()
		}

		out = InitiatePaymentOutput{
			PaymentID:   p.ID,
			PaymentURL:  p.PaymentURL,
			OrderID:     o.ID,
			Amount:      p.Amount,
			OrderNumber: o.OrderNumber,
		}
		return nil
	})

	if err != nil {
		return InitiatePaymentOutput{}, err
	}
	return out, nil
}

type CallbackOutput struct {
	PaymentID     int64  `json:"payment_id"`
	OrderID       int64  `json:"order_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// 拒否したコールバックの監査行。
// 本体Txはrollbackで消えるので、必ず独立したTxで書いて残す。
func (u *PaymentUsecase) recordRejectedCallback(ctx context.Context, paymentID *int64, raw, responseCode string, signatureValid bool) {
	_ = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.PaymentCallbacks().Create(ctx, model.PaymentCallback{
			PaymentID:      paymentID,
			RawPayload:     raw,
			SignatureValid: signatureValid,
			ResponseCode:   responseCode,
			Outcome:        model.CallbackOutcomeRejected,
			CreatedAt:      time.Now(),
		})
	})
}

// 本体Txを巻き戻して拒否応答に切り替えるための内部シグナル
var errCallbackRejected = errors.New("callback rejected")

// ゲートウェイからの非同期コールバック。
// 署名→金額→レスポンスコードの順に検証し、状態反映と監査記録を1Txで行う。
// 同じPaymentへの再配送は現在の状態を返すだけの安全なno-opになる。
// エラーを返すのは署名不正だけ。それ以外の拒否はREJECTEDの受領応答になる。
func (u *PaymentUsecase) HandleCallback(ctx context.Context, values url.Values) (CallbackOutput, error) {
	raw := values.Encode()
	responseCode := values.Get("vnp_ResponseCode")

	//署名が壊れていたら何も処理しない。生ペイロードだけ監査に残す。
	if err := u.gateway.VerifyCallback(values); err != nil {
		u.recordRejectedCallback(ctx, nil, raw, responseCode, false)
		return CallbackOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidSignature, "invalid signature")
	}

	paymentID, err := strconv.ParseInt(values.Get("vnp_TxnRef"), 10, 64)
	if err != nil || paymentID <= 0 {
		u.recordRejectedCallback(ctx, nil, raw, responseCode, true)
		return CallbackOutput{
			Status:  string(model.CallbackOutcomeRejected),
			Message: "unknown payment reference",
		}, nil
	}
	cbAmount, err := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)
	if err != nil {
		u.recordRejectedCallback(ctx, nil, raw, responseCode, true)
		return CallbackOutput{
			PaymentID: paymentID,
			Status:    string(model.CallbackOutcomeRejected),
			Message:   "invalid amount",
		}, nil
	}
	transactionNo := values.Get("vnp_TransactionNo")

	var (
		out       CallbackOutput
		rejectPID *int64
		rejectMsg string
	)

	txErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByIDForUpdate(ctx, paymentID)
		if err == repo.ErrNotFound {
			rejectMsg = "unknown payment reference"
			return errCallbackRejected
		}
		if err != nil {
			return newDBError()
		}

		//金額は保存済みの値から再計算して突き合わせる
		if vnpay.MinorAmount(p.Amount) != cbAmount {
			rejectPID = &p.ID
			rejectMsg = "amount mismatch"
			return errCallbackRejected
		}

		//再配送はno-op。今の状態をそのまま返す。
		if p.Settled() {
			if err := r.PaymentCallbacks().Create(ctx, model.PaymentCallback{
				PaymentID:      &p.ID,
				RawPayload:     raw,
				SignatureValid: true,
				ResponseCode:   responseCode,
				Outcome:        model.CallbackOutcomeDuplicate,
				CreatedAt:      time.Now(),
			}); err != nil {
				return newDBError()
			}
			out = CallbackOutput{
				PaymentID:     p.ID,
				OrderID:       p.OrderID,
				Status:        string(p.Status),
				Message:       "already processed",
				TransactionID: p.TransactionID,
			}
			return nil
		}

		ok, message := vnpay.ResponseOutcome(responseCode)
		now := time.Now()

		if ok {
			if err := r.Payments().UpdateFields(ctx, p.ID, map[string]interface{}{
				"status":           model.PaymentStatusPaid,
				"transaction_id":   transactionNo,
				"gateway_response": raw,
				"paid_at":          now,
				"session_used":     true,
			}); err != nil {
				return newDBError()
			}

			o, err := r.Orders().FindByIDForUpdate(ctx, p.OrderID)
			if err == repo.ErrNotFound {
				return newNotFound()
			}
			if err != nil {
				return newDBError()
			}

			//先に閉じた注文（キャンセル済み等）への遅延成功コールバックでは
			//注文も在庫も動かさない。入金の事実は決済側の記録だけに残す。
			if o.Status == model.OrderStatusPending {
				//チェックアウトで引き当て済みならここでは触らない（引き当ては一箇所だけ）
				if !o.StockDeducted {
					items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
					if err != nil {
						return newDBError()
					}
					for _, it := range items {
						if it.ProductSizeID == nil {
							continue
						}
						deducted, err := r.Stock().DeductIfAvailable(ctx, *it.ProductSizeID, it.Quantity)
						if err != nil {
							return newDBError()
						}
						if !deducted {
							available, err := r.Stock().GetAvailable(ctx, *it.ProductSizeID)
							if err != nil {
								return newDBError()
							}
							return newInsufficientStock(available)
						}
					}
					if err := r.Orders().UpdateFields(ctx, o.ID, map[string]interface{}{
						"stock_deducted": true,
					}); err != nil {
						return newDBError()
					}
					o.StockDeducted = true
				}

				if err := applyOrderTransition(ctx, r, o, model.OrderStatusConfirmed, now); err != nil {
					return err
				}
			}
			if err := r.Orders().UpdateFields(ctx, o.ID, map[string]interface{}{
				"payment_status": model.PaymentStatusPaid,
			}); err != nil {
				return newDBError()
			}

			if err := r.PaymentCallbacks().Create(ctx, model.PaymentCallback{
				PaymentID:      &p.ID,
				RawPayload:     raw,
				SignatureValid: true,
				ResponseCode:   responseCode,
				Outcome:        model.CallbackOutcomeProcessed,
				CreatedAt:      now,
			}); err != nil {
				return newDBError()
			}

			out = CallbackOutput{
				PaymentID:     p.ID,
				OrderID:       p.OrderID,
				Status:        string(model.PaymentStatusPaid),
				Message:       message,
				TransactionID: transactionNo,
			}
			return nil
		}

		//失敗。注文はPENDINGのままにして再試行できるようにする。
		if err := r.Payments().UpdateFields(ctx, p.ID, map[string]interface{}{
			"status":           model.PaymentStatusFailed,
			"gateway_response": raw,
			"session_used":     true,
		}); err != nil {
			return newDBError()
		}
		if err := r.Orders().UpdateFields(ctx, p.OrderID, map[string]interface{}{
			"payment_status": model.PaymentStatusFailed,
		}); err != nil {
			return newDBError()
		}

		if err := r.PaymentCallbacks().Create(ctx, model.PaymentCallback{
			PaymentID:      &p.ID,
			RawPayload:     raw,
			SignatureValid: true,
			ResponseCode:   responseCode,
			Outcome:        model.CallbackOutcomeFailed,
			CreatedAt:      now,
		}); err != nil {
			return newDBError()
		}

		out = CallbackOutput{
			PaymentID: p.ID,
			OrderID:   p.OrderID,
			Status:    string(model.PaymentStatusFailed),
			Message:   message,
		}
		return nil
	})

	if errors.Is(txErr, errCallbackRejected) {
		u.recordRejectedCallback(ctx, rejectPID, raw, responseCode, true)
		rejected := CallbackOutput{
			PaymentID: paymentID,
			Status:    string(model.CallbackOutcomeRejected),
			Message:   rejectMsg,
		}
		return rejected, nil
	}
	if txErr != nil {
		return CallbackOutput{}, txErr
	}
	return out, nil
}
