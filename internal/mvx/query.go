package mvx

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/fd1az/price-getter/internal/caching"
)

// Query is a read-only call to a contract view function.
type Query struct {
	Contract Address
	Function string
	Args     [][]byte
}

// NewQuery builds a query; args are raw top-encoded values.
func NewQuery(contract Address, function string, args ...[]byte) Query {
	return Query{Contract: contract, Function: function, Args: args}
}

// Fingerprint identifies the query for caching. Arguments are length-prefixed so
// ("ab","c") and ("a","bc") differ.
func (q Query) Fingerprint() caching.Key {
	parts := make([][]byte, 0, 2+2*len(q.Args))
	parts = append(parts, q.Contract[:], []byte(q.Function))
	for _, arg := range q.Args {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(arg)))
		parts = append(parts, n[:], arg)
	}
	return caching.KeyFromBytes(parts...)
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Contract.Bech32())
	b.WriteByte('.')
	b.WriteString(q.Function)
	b.WriteByte('(')
	for i, arg := range q.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(HexArg(arg))
	}
	b.WriteByte(')')
	return b.String()
}

// QueryExecutor runs view queries and returns the raw return data.
type QueryExecutor interface {
	Execute(ctx context.Context, q Query) ([][]byte, error)
}

// ExecutorFunc adapts a function to QueryExecutor.
type ExecutorFunc func(ctx context.Context, q Query) ([][]byte, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, q Query) ([][]byte, error) {
	return f(ctx, q)
}
