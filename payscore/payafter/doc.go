// Package payafter assembles the PayScore "pay after" order calls: user
// service state, order creation, query, completion, cancellation,
// modification and payment sync. Amounts are integer fen; use Fen or
// ParseYuan to convert from yuan.
package payafter
