package blockchain

import "fmt"

// Code classifies which upstream source failed
type Code string

const (
	CodePriceFeed   Code = "PRICE_FEED_ERROR"
	CodeBTCIndexer  Code = "BTC_INDEXER_ERROR"
	CodeETHRPC      Code = "ETH_RPC_ERROR"
	CodeETHTxList   Code = "ETH_TXLIST_ERROR"
	CodeTronIndexer Code = "TRON_INDEXER_ERROR"
)

// SourceError is returned by every upstream call: network failures,
// non-2xx responses, malformed JSON and missing fields alike
type SourceError struct {
	Code Code
	Op   string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// wrapWithCode returns nil for a nil err
func wrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Code: code, Op: op, Err: err}
}
