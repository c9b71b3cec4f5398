package mvx

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/caching"
)

var _ QueryExecutor = (*MockExecutor)(nil)

type mockAnswer struct {
	data [][]byte
	err  error
}

// MockExecutor answers registered queries from memory. Unregistered queries fail with FIXTURE_NOT_FOUND.
type MockExecutor struct {
	mu      sync.RWMutex
	answers map[caching.Key]mockAnswer
	calls   map[string]int
	total   int
}

// NewMockExecutor creates an empty mock.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		answers: make(map[caching.Key]mockAnswer),
		calls:   make(map[string]int),
	}
}

// Register answers q with data.
func (m *MockExecutor) Register(q Query, data ...[]byte) {
	m.mu.Lock()
	m.answers[q.Fingerprint()] = mockAnswer{data: data}
	m.mu.Unlock()
}

// RegisterError answers q with err.
func (m *MockExecutor) RegisterError(q Query, err error) {
	m.mu.Lock()
	m.answers[q.Fingerprint()] = mockAnswer{err: err}
	m.mu.Unlock()
}

// Execute returns the registered answer for q.
func (m *MockExecutor) Execute(ctx context.Context, q Query) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Cancelled(ctx, err)
	}

	m.mu.Lock()
	m.calls[q.Function]++
	m.total++
	answer, ok := m.answers[q.Fingerprint()]
	m.mu.Unlock()

	if !ok {
		return nil, apperror.New(apperror.CodeFixtureMissing, apperror.WithContext(q.String()))
	}
	if answer.err != nil {
		return nil, answer.err
	}

	out := make([][]byte, len(answer.data))
	for i, d := range answer.data {
		out[i] = append([]byte(nil), d...)
	}
	return out, nil
}

// Calls returns the number of executed queries.
func (m *MockExecutor) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// CallsFor returns the number of executed queries for function.
func (m *MockExecutor) CallsFor(function string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[function]
}

// ResetCalls zeroes the call counters.
func (m *MockExecutor) ResetCalls() {
	m.mu.Lock()
	m.calls = make(map[string]int)
	m.total = 0
	m.mu.Unlock()
}

// Fixture is the on-disk form of canned query answers.
//
// Values are typed by prefix: "str:" raw string, "addr:" bech32 address,
// "biguint:" decimal unsigned integer, "0x" hex bytes. An empty string is empty bytes.
type Fixture struct {
	Queries []FixtureQuery `json:"queries"`
}

// FixtureQuery is one canned answer.
type FixtureQuery struct {
	Contract   string   `json:"contract"`
	Function   string   `json:"function"`
	Args       []string `json:"args"`
	ReturnData []string `json:"returnData"`
	Error      string   `json:"error,omitempty"`
}

// LoadFixtureFile registers every query of the fixture at path.
func (m *MockExecutor) LoadFixtureFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperror.New(apperror.CodeFixtureMissing, apperror.WithContext(path), apperror.WithCause(err))
	}
	defer f.Close()
	return m.LoadFixture(f)
}

// LoadFixture registers every query read from r.
func (m *MockExecutor) LoadFixture(r io.Reader) error {
	var fx Fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return apperror.New(apperror.CodeInvalidFormat, apperror.WithContext("fixture"), apperror.WithCause(err))
	}

	for i, fq := range fx.Queries {
		q, data, err := fq.decode()
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidFormat, fmt.Sprintf("fixture query %d", i))
		}
		if fq.Error != "" {
			m.RegisterError(q, apperror.New(apperror.CodeVMQueryFailed, apperror.WithContext(fq.Error)))
			continue
		}
		m.Register(q, data...)
	}
	return nil
}

func (fq FixtureQuery) decode() (Query, [][]byte, error) {
	contract, err := ParseAddress(fq.Contract)
	if err != nil {
		return Query{}, nil, err
	}

	args := make([][]byte, len(fq.Args))
	for i, a := range fq.Args {
		if args[i], err = DecodeFixtureValue(a); err != nil {
			return Query{}, nil, err
		}
	}

	data := make([][]byte, len(fq.ReturnData))
	for i, d := range fq.ReturnData {
		if data[i], err = DecodeFixtureValue(d); err != nil {
			return Query{}, nil, err
		}
	}

	return NewQuery(contract, fq.Function, args...), data, nil
}

// DecodeFixtureValue converts a prefixed fixture value into raw bytes.
func DecodeFixtureValue(v string) ([]byte, error) {
	switch {
	case v == "":
		return []byte{}, nil
	case strings.HasPrefix(v, "str:"):
		return []byte(strings.TrimPrefix(v, "str:")), nil
	case strings.HasPrefix(v, "addr:"):
		a, err := ParseAddress(strings.TrimPrefix(v, "addr:"))
		if err != nil {
			return nil, err
		}
		return a.Bytes(), nil
	case strings.HasPrefix(v, "biguint:"):
		n, ok := new(big.Int).SetString(strings.TrimPrefix(v, "biguint:"), 10)
		if !ok || n.Sign() < 0 {
			return nil, apperror.New(apperror.CodeInvalidFormat, apperror.WithContext("biguint "+v))
		}
		return n.Bytes(), nil
	case strings.HasPrefix(v, "0x"):
		b, err := hex.DecodeString(v[2:])
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidFormat, apperror.WithContext(v), apperror.WithCause(err))
		}
		return b, nil
	default:
		return nil, apperror.New(apperror.CodeInvalidFormat, apperror.WithContext("unknown value prefix "+v))
	}
}
