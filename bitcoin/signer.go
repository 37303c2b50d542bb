package bitcoin

// Signer is an abstract capability that turns a sighash into a signature. Key satisfies it
// directly. The signing helpers in txbuilder (InputSignature and the unlocking-script
// builders) and psbt's Sign take a concrete Key, not a Signer, so they cannot be driven by
// another implementation.
type Signer interface {
	PublicKey() PublicKey
	Sign(hash Hash32) (Signature, error)
}

// RecoverableSigner can recover a public key from a signature it did not produce itself.
// Ravencoin signatures carry no recovery id, so recovery tries every candidate and checks
// which one verifies. psbt's UpdateFromExternalSignature does not use this interface; it
// calls txbuilder.RecoverSignerPublicKey, which calls RecoverPublicKey directly.
type RecoverableSigner interface {
	RecoverPublicKey(hash Hash32, sig Signature) (PublicKey, error)
}

// defaultSigner is the concrete Signer/RecoverableSigner backing Key, wired to btcec under the
// hood (see key.go, signature.go). Most callers use Key directly; this wrapper exists so code
// that only needs the interface doesn't have to import the concrete type.
type defaultSigner struct {
	key Key
}

// NewSigner wraps a Key as a Signer for callers that program against the interface.
func NewSigner(key Key) Signer {
	return defaultSigner{key: key}
}

func (s defaultSigner) PublicKey() PublicKey {
	return s.key.PublicKey()
}

func (s defaultSigner) Sign(hash Hash32) (Signature, error) {
	return s.key.Sign(hash)
}

func (s defaultSigner) RecoverPublicKey(hash Hash32, sig Signature) (PublicKey, error) {
	return RecoverPublicKey(hash, sig)
}

var (
	_ Signer            = defaultSigner{}
	_ RecoverableSigner = defaultSigner{}
)
