package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders           repo.OrderRepository
	orderItems       repo.OrderItemRepository
	carts            repo.CartRepository
	cartItems        repo.CartItemRepository
	stock            repo.StockRepository
	products         repo.ProductRepository
	payments         repo.PaymentRepository
	paymentCallbacks repo.PaymentCallbackRepository
	returns          repo.OrderReturnRepository
	auditLogs        repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                      { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository              { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository                        { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository                { return r.cartItems }
func (r *txReposGorm) Stock() repo.StockRepository                       { return r.stock }
func (r *txReposGorm) Products() repo.ProductRepository                  { return r.products }
func (r *txReposGorm) Payments() repo.PaymentRepository                  { return r.payments }
func (r *txReposGorm) PaymentCallbacks() repo.PaymentCallbackRepository  { return r.paymentCallbacks }
func (r *txReposGorm) Returns() repo.OrderReturnRepository               { return r.returns }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository                { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:           NewOrderGormRepository(tx),
			orderItems:       NewOrderItemGormRepository(tx),
			carts:            NewCartGormRepository(tx),
			cartItems:        NewCartItemGormRepository(tx),
			stock:            NewStockGormRepository(tx),
			products:         NewProductGormRepository(tx),
			payments:         NewPaymentGormRepository(tx),
			paymentCallbacks: NewPaymentCallbackGormRepository(tx),
			returns:          NewOrderReturnGormRepository(tx),
			auditLogs:        NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
