package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams     = orz.NewError(10400, "参数无效")
	ErrEngineRunning     = orz.NewError(10000, "交易引擎已在运行")
	ErrEngineNotRunning  = orz.NewError(10001, "交易引擎未在运行")
	ErrExchangeNotFound  = orz.NewError(10002, "交易所不存在")
	ErrSymbolNotFound    = orz.NewError(10003, "交易对不存在")
	ErrStatNotFound      = orz.NewError(10004, "当日暂无统计数据")
	ErrCurrentNotAllowed = orz.NewError(10005, "当前不允许操作")
)
