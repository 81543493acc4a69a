package crypto

import "go.uber.org/fx"

var Module = fx.Module("crypto.registry",
	fx.Provide(
		NewDefaultRegistry,
	),
)

// NewDefaultRegistry wires the shipped providers: AES-CBC for identifiers,
// JWE for payloads.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewAESCBCProvider(), NewJWEProvider())
}
