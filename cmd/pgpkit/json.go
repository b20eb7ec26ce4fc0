package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/pipeline"
)

// generateKeyRequestJSON is the on-disk JSON shape of a generate-key
// request (-j/--request FILE), the ambient-stack JSON surface alongside
// the keygen flags: a caller that wants algorithm/curve/bit-size control
// beyond the passphrase-derived Ed25519/X25519 default writes one of
// these instead of passing -u/-s.
type generateKeyRequestJSON struct {
	UserID      string `json:"uid"`
	PrimaryAlgo string `json:"primary_algo"`
	SubkeyAlgo  string `json:"subkey_algo,omitempty"`
	Curve       string `json:"curve,omitempty"`
	RSABits     int    `json:"rsa_bits,omitempty"`
	Created     int64  `json:"created,omitempty"`
}

func (r generateKeyRequestJSON) toRequest() (pipeline.GenerateRequest, error) {
	primaryAlgo, err := algoByName(r.PrimaryAlgo)
	if err != nil {
		return pipeline.GenerateRequest{}, err
	}
	req := pipeline.GenerateRequest{
		UserID:      []byte(r.UserID),
		PrimaryAlgo: primaryAlgo,
		RSABits:     r.RSABits,
		Created:     r.Created,
	}
	if r.SubkeyAlgo != "" {
		subAlgo, err := algoByName(r.SubkeyAlgo)
		if err != nil {
			return pipeline.GenerateRequest{}, err
		}
		req.SubkeyAlgo = subAlgo
	}
	if r.Curve != "" {
		curve, err := curveByName(r.Curve)
		if err != nil {
			return pipeline.GenerateRequest{}, err
		}
		req.Curve = curve
	}
	return req, nil
}

func algoByName(name string) (openpgp.PublicKeyAlgorithm, error) {
	switch name {
	case "rsa":
		return openpgp.PubKeyRSA, nil
	case "dsa":
		return openpgp.PubKeyDSA, nil
	case "ecdsa":
		return openpgp.PubKeyECDSA, nil
	case "eddsa", "ed25519":
		return openpgp.PubKeyEdDSA, nil
	case "ecdh", "x25519":
		return openpgp.PubKeyECDH, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", name)
	}
}

func curveByName(name string) (openpgp.Curve, error) {
	switch name {
	case "ed25519":
		return openpgp.CurveEd25519, nil
	case "x25519":
		return openpgp.CurveX25519, nil
	case "p256", "nistp256":
		return openpgp.CurveP256, nil
	case "p384", "nistp384":
		return openpgp.CurveP384, nil
	case "p521", "nistp521":
		return openpgp.CurveP521, nil
	default:
		return openpgp.CurveNone, fmt.Errorf("unknown curve %q", name)
	}
}

// keyDumpJSON is the to-JSON rendering of a Key for -f json, showing only
// derived/public metadata: it never includes secret material, including
// when the in-memory Key carries an unlocked one.
type keyDumpJSON struct {
	Fingerprint string   `json:"fingerprint"`
	KeyID       string   `json:"keyid"`
	Algorithm   string   `json:"algorithm"`
	Created     int64    `json:"created"`
	UserIDs     []string `json:"user_ids"`
	Subkeys     []string `json:"subkeys,omitempty"`
}

func newKeyDumpJSON(k *keymodel.Key, subkeys []*keymodel.Key) keyDumpJSON {
	d := keyDumpJSON{
		Fingerprint: hex.EncodeToString(k.Public.Fingerprint()),
		KeyID:       hex.EncodeToString(k.Public.KeyID()),
		Algorithm:   k.Public.Algorithm.String(),
		Created:     k.Public.Created,
	}
	for _, u := range k.UIDs {
		if u.UserID != nil {
			d.UserIDs = append(d.UserIDs, string(u.UserID.ID))
		}
	}
	for _, sub := range subkeys {
		d.Subkeys = append(d.Subkeys, hex.EncodeToString(sub.Public.Fingerprint()))
	}
	return d
}
