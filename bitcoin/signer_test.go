package bitcoin

import "testing"

func TestSignerSignAndVerify(t *testing.T) {
	key, err := GenerateKey(MainNet)
	if err != nil {
		t.Fatalf("Failed to generate key : %s", err)
	}

	signer := NewSigner(key)

	var hash Hash32
	hash[0] = 1
	hash[31] = 2

	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}

	if !sig.Verify(hash, signer.PublicKey()) {
		t.Fatalf("Signature did not verify against signer's own public key")
	}
}

func TestRecoverableSignerRecoversPublicKey(t *testing.T) {
	key, err := GenerateKey(MainNet)
	if err != nil {
		t.Fatalf("Failed to generate key : %s", err)
	}

	signer := NewSigner(key)
	recoverable, ok := signer.(RecoverableSigner)
	if !ok {
		t.Fatalf("defaultSigner does not implement RecoverableSigner")
	}

	var hash Hash32
	hash[0] = 3
	hash[31] = 4

	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}

	recovered, err := recoverable.RecoverPublicKey(hash, sig)
	if err != nil {
		t.Fatalf("Failed to recover public key : %s", err)
	}

	if !recovered.Equal(signer.PublicKey()) {
		t.Fatalf("Recovered public key does not match signer's public key")
	}
}
