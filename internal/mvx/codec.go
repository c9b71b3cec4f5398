package mvx

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/price-getter/internal/apperror"
)

// StringArg encodes a string argument such as a token identifier.
func StringArg(s string) []byte {
	return []byte(s)
}

// AddressArg encodes an address argument.
func AddressArg(a Address) []byte {
	return a.Bytes()
}

// BigUintArg encodes an unsigned integer with minimal big-endian bytes.
func BigUintArg(v *big.Int) []byte {
	return v.Bytes()
}

// HexArg renders an argument the way the gateway expects it.
func HexArg(arg []byte) string {
	return common.Bytes2Hex(arg)
}

// DecodeBigUint reads an unsigned big-endian integer. Empty input is zero.
func DecodeBigUint(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// DecodeAddress reads a 32-byte address.
func DecodeAddress(b []byte) (Address, error) {
	a, err := AddressFromBytes(b)
	if err != nil {
		return a, apperror.New(apperror.CodeDecodeFailed, apperror.WithContext("address"), apperror.WithCause(err))
	}
	return a, nil
}

// Single returns the only value of a result, failing on empty return data.
func Single(data [][]byte, function string) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperror.New(apperror.CodeDecodeFailed,
			apperror.WithContext(fmt.Sprintf("%s returned no data", function)))
	}
	return data[0], nil
}
