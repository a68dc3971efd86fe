package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Stock() StockRepository
	Products() ProductRepository
	Payments() PaymentRepository
	PaymentCallbacks() PaymentCallbackRepository
	Returns() OrderReturnRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// 複数集約をまたぐ変更はこの中でしかやらない。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
