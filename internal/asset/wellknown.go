package asset

// Mainnet identifiers of the tokens the pricer depends on.
const (
	IDUSDC  Identifier = "USDC-c76f1f"
	IDWEGLD Identifier = "WEGLD-bd4d79"
	IDMEX   Identifier = "MEX-455c57"
	IDHTM   Identifier = "HTM-f51d55"
)

// Well-known Assets (pre-created instances)
var (
	USDC  = NewAsset(IDUSDC, "WrappedUSDC", 6)
	WEGLD = NewAsset(IDWEGLD, "WrappedEGLD", 18)
	MEX   = NewAsset(IDMEX, "MEX", 18)
	HTM   = NewAsset(IDHTM, "Hatom", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(USDC)
	r.Register(WEGLD)
	r.Register(MEX)
	r.Register(HTM)

	return r
}
