package pipeline

import (
	"crypto/dsa" //nolint:staticcheck // RFC 4880 mandates DSA support
	"math/big"

	"crypto/elliptic"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/ed25519"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
	"github.com/pgpkit/pgpkit/openpgp/protect"
	"github.com/pgpkit/pgpkit/openpgp/sigengine"
)

// GenerateRequest describes a primary key (plus one encryption subkey) to
// generate, spec.md 4.I operation code add-subkey/generate: the pipeline's
// analogue of the teacher's SignKey.Seed+EncryptKey.Seed pair, generalized
// to the full algorithm set instead of being hardwired to Ed25519/X25519.
type GenerateRequest struct {
	UserID      []byte
	PrimaryAlgo openpgp.PublicKeyAlgorithm
	SubkeyAlgo  openpgp.PublicKeyAlgorithm
	Curve       openpgp.Curve // ECDSA/ECDH/EdDSA only
	RSABits     int           // RSA only
	Created     int64
}

// GenerateKey builds a fresh primary key with a certify+sign capability, a
// direct-key self-signature, one user ID with a positive certification,
// and (when req.SubkeyAlgo is set) one encryption-capable subkey with a
// binding signature, spec.md 3/4.G "Key"/"sign_certification"/
// "sign_binding". The returned subkey is nil when req.SubkeyAlgo is unset;
// callers that keep it around must Insert both keys into the same
// Collection for the grip linkage to resolve.
func GenerateKey(req GenerateRequest) (primary *keymodel.Key, subkey *keymodel.Key, err error) {
	const op = "pipeline.GenerateKey"
	if len(req.UserID) == 0 {
		return nil, nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	created := req.Created
	if created == 0 {
		created = sigengine.Now()
	}

	primaryPub, primarySecret, err := generateKeyPair(req.PrimaryAlgo, req.Curve, req.RSABits, created)
	if err != nil {
		return nil, nil, err
	}
	primary, err = buildPrimaryFromPair(req, created, primaryPub, primarySecret)
	if err != nil {
		return nil, nil, err
	}

	if req.SubkeyAlgo == 0 {
		return primary, nil, nil
	}
	subkey, err = AddSubkey(primary, req.SubkeyAlgo, req.Curve, req.RSABits, created)
	if err != nil {
		return nil, nil, err
	}
	return primary, subkey, nil
}

// GenerateKeyFromSeed derives a primary key (only the primary: no subkey is
// created here, see AddSubkeyFromSeed) deterministically from 32 bytes of
// high-entropy seed material instead of drawing fresh randomness from the
// oracle, the teacher's signature behavior (`passphrase2pgp.go`'s
// Argon2id-then-`SignKey.Seed`/`EncryptKey.Seed` pipeline), generalized off
// its single hardwired Ed25519/X25519 pair onto this package's full key
// assembly path. req.PrimaryAlgo must be PubKeyEdDSA: deterministic
// generation from a fixed-length seed is only well-defined for Ed25519 (the
// private key IS the seed) and X25519 (the scalar IS the seed); RSA/DSA/
// ECDSA key generation has no such canonical seed-to-key mapping and stays
// on GenerateKey's random oracle path.
func GenerateKeyFromSeed(req GenerateRequest, seed []byte) (*keymodel.Key, error) {
	const op = "pipeline.GenerateKeyFromSeed"
	if len(req.UserID) == 0 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	if req.PrimaryAlgo != openpgp.PubKeyEdDSA {
		return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	if len(seed) != ed25519.SeedSize {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	created := req.Created
	if created == 0 {
		created = sigengine.Now()
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := openpgp.PublicKey{
		Version: 4, Created: created, Algorithm: openpgp.PubKeyEdDSA, Curve: openpgp.CurveEd25519,
		Point: append([]byte{0x40}, priv.Public().(ed25519.PublicKey)...),
	}
	sec := openpgp.SecretKey{Public: pub, Scalar: append([]byte(nil), seed...)}

	return buildPrimaryFromPair(req, created, pub, sec)
}

// AddSubkeyFromSeed binds an X25519 encryption subkey to primary whose
// scalar is exactly subSeed (32 bytes), the deterministic counterpart to
// AddSubkey, grounded the same way as GenerateKeyFromSeed.
func AddSubkeyFromSeed(primary *keymodel.Key, subSeed []byte, created int64) (*keymodel.Key, error) {
	const op = "pipeline.AddSubkeyFromSeed"
	if primary.Secret == nil || primary.Secret.Locked {
		return nil, &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}
	if len(subSeed) != 32 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	pubBytes, err := curve25519.X25519(subSeed, curve25519.Basepoint)
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrKeyGenerationFailure, Op: op, Err: err}
	}
	subPub := openpgp.PublicKey{
		Version: 4, Created: created, Algorithm: openpgp.PubKeyECDH, Curve: openpgp.CurveX25519,
		Point: append([]byte{0x40}, pubBytes...), KDFHash: openpgp.HashSHA256, KDFCipher: openpgp.CipherAES128,
	}
	subSecret := openpgp.SecretKey{Public: subPub, Scalar: append([]byte(nil), subSeed...)}
	return bindSubkey(primary, subPub, subSecret)
}

// buildPrimaryFromPair assembles the direct-key self-signature, user ID,
// and certification around an already-produced key pair, shared by
// GenerateKey's random path and GenerateKeyFromSeed's deterministic one.
func buildPrimaryFromPair(req GenerateRequest, created int64, primaryPub openpgp.PublicKey, primarySecret openpgp.SecretKey) (*keymodel.Key, error) {
	primary := &keymodel.Key{Public: &primaryPub, Secret: &primarySecret, PrimaryUID: -1, KeyFlags: keyFlagCertify | keyFlagSign}
	uidIdx := primary.AddUserID(req.UserID)
	primary.PrimaryUID = uidIdx

	signer, err := signerFromSecret(primary.Secret)
	if err != nil {
		return nil, err
	}
	directReq := sigengine.NewRequest{
		Type: openpgp.SigDirectKey, HashAlgo: openpgp.HashSHA256,
		Created: created, KeyFlags: primary.KeyFlags, Issuer: primaryPub.KeyID(),
	}
	directSig := sigengine.Build(primaryPub.Algorithm, directReq)
	directSig, err = sigengine.SignDirect(signer, directSig, primaryPub)
	if err != nil {
		return nil, err
	}
	primary.SubSigs = append(primary.SubSigs, keymodel.SubSig{Sig: directSig, UIDIdx: -1})

	certReq := sigengine.NewRequest{
		Type: openpgp.SigCertPositive, HashAlgo: openpgp.HashSHA256,
		Created: created, Issuer: primaryPub.KeyID(),
	}
	certSig := sigengine.Build(primaryPub.Algorithm, certReq)
	certSig, err = sigengine.SignCertification(signer, certSig, primaryPub, req.UserID)
	if err != nil {
		return nil, err
	}
	primary.SubSigs = append(primary.SubSigs, keymodel.SubSig{Sig: certSig, UIDIdx: uidIdx})
	primary.RefreshPreferences()
	return primary, nil
}

// AddSubkey generates a new subkey bound to primary via a fresh binding
// signature, spec.md 4.I operation code add-subkey. The returned Key must
// be inserted into the same Collection as primary so the grip linkage
// (PrimaryGrip/SubkeyGrips) resolves at use time.
func AddSubkey(primary *keymodel.Key, algo openpgp.PublicKeyAlgorithm, curve openpgp.Curve, rsaBits int, created int64) (*keymodel.Key, error) {
	const op = "pipeline.AddSubkey"
	if primary.Secret == nil || primary.Secret.Locked {
		return nil, &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}
	subPub, subSecret, err := generateKeyPair(algo, curve, rsaBits, created)
	if err != nil {
		return nil, err
	}
	return bindSubkey(primary, subPub, subSecret)
}

// bindSubkey wraps an already-produced (public, secret) key pair in a
// subkey Key and binds it to primary with a fresh binding signature,
// shared by AddSubkey's random path and AddSubkeyFromSeed's deterministic
// one.
func bindSubkey(primary *keymodel.Key, subPub openpgp.PublicKey, subSecret openpgp.SecretKey) (*keymodel.Key, error) {
	algo := subPub.Algorithm
	sub := &keymodel.Key{
		Public: &subPub, Secret: &subSecret, IsSubkey: true,
		PrimaryUID: -1, KeyFlags: keyFlagEncryptComm | keyFlagEncryptStorage,
	}
	if algo == openpgp.PubKeyECDSA || algo == openpgp.PubKeyEdDSA || algo == openpgp.PubKeyDSA {
		sub.KeyFlags = keyFlagSign
	}
	sub.PrimaryGrip = primary.Grip()

	signer, err := signerFromSecret(primary.Secret)
	if err != nil {
		return nil, err
	}
	bindReq := sigengine.NewRequest{
		Type: openpgp.SigSubkeyBinding, HashAlgo: openpgp.HashSHA256,
		Created: subPub.Created, KeyFlags: sub.KeyFlags, Issuer: primary.Public.KeyID(),
	}
	bindSig := sigengine.Build(primary.Public.Algorithm, bindReq)
	bindSig, err = sigengine.SignBinding(signer, bindSig, *primary.Public, subPub)
	if err != nil {
		return nil, err
	}
	sub.SubSigs = append(sub.SubSigs, keymodel.SubSig{Sig: bindSig, UIDIdx: -1})
	primary.SubkeyGrips = append(primary.SubkeyGrips, sub.Grip())
	return sub, nil
}

// AddUserID attaches a new user ID to key, signed with a positive
// certification by key itself, spec.md 4.I operation code add-userid.
func AddUserID(ctx *Context, key *keymodel.Key, uid []byte) error {
	const op = "pipeline.AddUserID"
	if key.Secret == nil {
		return &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: op}
	}
	if key.Secret.Locked {
		password, ok := ctx.Passwords.GetPassword(OpAddUserID, key)
		if !ok {
			return &openpgp.Error{Code: openpgp.ErrBadPassword, Op: op}
		}
		if err := protect.Unlock(key.Secret, password); err != nil {
			return err
		}
		defer protect.Lock(key.Secret)
	}
	signer, err := signerFromSecret(key.Secret)
	if err != nil {
		return err
	}
	uidIdx := key.AddUserID(uid)
	req := sigengine.NewRequest{
		Type: openpgp.SigCertPositive, HashAlgo: openpgp.HashSHA256,
		Created: sigengine.Now(), Issuer: key.Public.KeyID(),
	}
	sig := sigengine.Build(key.Public.Algorithm, req)
	sig, err = sigengine.SignCertification(signer, sig, *key.Public, uid)
	if err != nil {
		return err
	}
	key.SubSigs = append(key.SubSigs, keymodel.SubSig{Sig: sig, UIDIdx: uidIdx})
	return nil
}

// generateKeyPair produces the (PublicKey, SecretKey) pair for algo,
// spec.md 4.A "key-pair-generation half of the oracle surface" driving
// the wire-level assembly this package owns.
func generateKeyPair(algo openpgp.PublicKeyAlgorithm, curve openpgp.Curve, rsaBits int, created int64) (openpgp.PublicKey, openpgp.SecretKey, error) {
	const op = "pipeline.generateKeyPair"
	switch algo {
	case openpgp.PubKeyRSA:
		if rsaBits == 0 {
			rsaBits = 3072
		}
		priv, err := oracle.GenerateRSA(rsaBits)
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		pub := openpgp.PublicKey{
			Version: 4, Created: created, Algorithm: openpgp.PubKeyRSA,
			Params: []*big.Int{priv.N, big.NewInt(int64(priv.E))},
		}
		sec := openpgp.SecretKey{
			Public: pub,
			Params: []*big.Int{priv.D, priv.Primes[0], priv.Primes[1], modInverse(priv.Primes[1], priv.Primes[0])},
		}
		return pub, sec, nil
	case openpgp.PubKeyDSA:
		if rsaBits == 0 {
			rsaBits = 2048
		}
		sizes := dsaParameterSizes(rsaBits)
		priv, err := oracle.GenerateDSA(sizes)
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		pub := openpgp.PublicKey{
			Version: 4, Created: created, Algorithm: openpgp.PubKeyDSA,
			Params: []*big.Int{priv.P, priv.Q, priv.G, priv.Y},
		}
		sec := openpgp.SecretKey{Public: pub, Params: []*big.Int{priv.X}}
		return pub, sec, nil
	case openpgp.PubKeyECDSA:
		ec, err := oracle.EllipticCurve(curve)
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		priv, err := oracle.GenerateECDSA(ec)
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		pub := openpgp.PublicKey{
			Version: 4, Created: created, Algorithm: openpgp.PubKeyECDSA, Curve: curve,
			Point: elliptic.Marshal(ec, priv.X, priv.Y),
		}
		sec := openpgp.SecretKey{Public: pub, Scalar: priv.D.Bytes()}
		return pub, sec, nil
	case openpgp.PubKeyEdDSA:
		pubBytes, priv, err := oracle.GenerateEd25519()
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		pub := openpgp.PublicKey{
			Version: 4, Created: created, Algorithm: openpgp.PubKeyEdDSA, Curve: openpgp.CurveEd25519,
			Point: append([]byte{0x40}, pubBytes...),
		}
		sec := openpgp.SecretKey{Public: pub, Scalar: append([]byte(nil), priv.Seed()...)}
		return pub, sec, nil
	case openpgp.PubKeyECDH:
		if curve == openpgp.CurveNone {
			curve = openpgp.CurveX25519
		}
		if curve != openpgp.CurveX25519 {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
		}
		scalar, pubBytes, err := oracle.GenerateX25519()
		if err != nil {
			return openpgp.PublicKey{}, openpgp.SecretKey{}, err
		}
		pub := openpgp.PublicKey{
			Version: 4, Created: created, Algorithm: openpgp.PubKeyECDH, Curve: openpgp.CurveX25519,
			Point: append([]byte{0x40}, pubBytes...), KDFHash: openpgp.HashSHA256, KDFCipher: openpgp.CipherAES128,
		}
		sec := openpgp.SecretKey{Public: pub, Scalar: scalar}
		return pub, sec, nil
	default:
		return openpgp.PublicKey{}, openpgp.SecretKey{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
}

func modInverse(a, m *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, m)
}

// dsaParameterSizes maps a requested L-bit size to the nearest
// crypto/dsa.ParameterSizes the stdlib implements; it does not support
// arbitrary L, only L1024N160, L2048N224 and L3072N256.
func dsaParameterSizes(bits int) dsa.ParameterSizes {
	switch {
	case bits <= 1024:
		return dsa.L1024N160
	case bits <= 2048:
		return dsa.L2048N224
	default:
		return dsa.L3072N256
	}
}
