package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"strconv"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// sexpNode is one node of a canonical S-expression: either an atom (a raw
// byte string) or a list of child nodes, spec.md 3 "S-expression format".
type sexpNode struct {
	atom []byte
	list []sexpNode
}

func (n sexpNode) isAtom() bool { return n.list == nil }

// parseSexp decodes one canonical S-expression, "(len:bytes ...)" nested
// lists, from the front of buf.
func parseSexp(buf []byte) (sexpNode, []byte, error) {
	const op = "keystore.parseSexp"
	if len(buf) == 0 {
		return sexpNode{}, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	if buf[0] == '(' {
		rest := buf[1:]
		var list []sexpNode
		for {
			if len(rest) == 0 {
				return sexpNode{}, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
			}
			if rest[0] == ')' {
				return sexpNode{list: list}, rest[1:], nil
			}
			child, r2, err := parseSexp(rest)
			if err != nil {
				return sexpNode{}, nil, err
			}
			list = append(list, child)
			rest = r2
		}
	}
	colon := bytes.IndexByte(buf, ':')
	if colon < 0 {
		return sexpNode{}, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	n, err := strconv.Atoi(string(buf[:colon]))
	if err != nil || n < 0 {
		return sexpNode{}, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	data := buf[colon+1:]
	if len(data) < n {
		return sexpNode{}, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	return sexpNode{atom: append([]byte(nil), data[:n]...)}, data[n:], nil
}

// encodeSexp is parseSexp's inverse.
func encodeSexp(n sexpNode) []byte {
	if n.isAtom() {
		return append([]byte(strconv.Itoa(len(n.atom))+":"), n.atom...)
	}
	var out bytes.Buffer
	out.WriteByte('(')
	for _, c := range n.list {
		out.Write(encodeSexp(c))
	}
	out.WriteByte(')')
	return out.Bytes()
}

// algAliases maps the s-expression "alg" symbol to a public-key algorithm,
// spec.md 4.E: "rsa, openpgp-rsa, ecc, ecdsa, eddsa, elg, dsa."
var algAliases = map[string]openpgp.PublicKeyAlgorithm{
	"rsa":         openpgp.PubKeyRSA,
	"openpgp-rsa": openpgp.PubKeyRSA,
	"ecc":         openpgp.PubKeyECDSA,
	"ecdsa":       openpgp.PubKeyECDSA,
	"eddsa":       openpgp.PubKeyEdDSA,
	"elg":         openpgp.PubKeyElGamal,
	"dsa":         openpgp.PubKeyDSA,
}

// protectionMode is one entry of spec.md 4.E's MODE table.
type protectionMode struct {
	cipher   openpgp.SymmetricAlgorithm
	aead     bool // true => OCB, false => CBC
	kdfHash  openpgp.HashAlgorithm
	nonceLen int
}

var protectionModes = map[string]protectionMode{
	"openpgp-s2k3-sha1-aes-cbc":    {cipher: openpgp.CipherAES128, aead: false, kdfHash: openpgp.HashSHA1, nonceLen: 16},
	"openpgp-s2k3-sha1-aes256-cbc": {cipher: openpgp.CipherAES256, aead: false, kdfHash: openpgp.HashSHA1, nonceLen: 16},
	"openpgp-s2k3-ocb-aes":         {cipher: openpgp.CipherAES128, aead: true, kdfHash: openpgp.HashSHA1, nonceLen: 12},
}

// SExprField is one named atom of an S-expression field list ("n", "e",
// "q", ...). Field order is part of the canonical encoding: GnuPG's
// protected-private-key hash tag is computed over the literal
// declared-order encoding, not a sorted or arbitrary one, so callers must
// not reorder a SExprFields value once parsed or built.
type SExprField struct {
	Name  string
	Value []byte
}

// SExprFields is an order-preserving field list, spec.md 3's "S-expression
// format". A map would lose both the parse order and, since Go randomizes
// map iteration, any fixed order at all — breaking the canonical-hash
// computation in Unlock/EncodeProtected for any key with more than one
// field (RSA's n/e, DSA's p/q/g/y, an EC point plus flags).
type SExprFields []SExprField

// Get returns the value for name, or nil if absent.
func (f SExprFields) Get(name string) []byte {
	for _, field := range f {
		if field.Name == name {
			return field.Value
		}
	}
	return nil
}

// SExprKey is a parsed private-key / protected-private-key file, spec.md
// 3/4.E.
type SExprKey struct {
	Algorithm openpgp.PublicKeyAlgorithm
	Public    SExprFields // e.g. "n","e" or "q" (the EC point), in declared order
	Params    SExprFields // plaintext secret parameters once unprotected, in declared order
	Protected bool
}

// ParseSExpr parses a private-key or protected-private-key file's bytes.
// For a protected file, Unlock must be called with the password before
// Params is populated.
func ParseSExpr(buf []byte) (*parsedSExpr, error) {
	const op = "keystore.ParseSExpr"
	root, _, err := parseSexp(bytes.TrimSpace(buf))
	if err != nil {
		return nil, err
	}
	if root.isAtom() || len(root.list) < 2 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	kind := string(root.list[0].atom)
	switch kind {
	case "private-key":
		algNode := root.list[1]
		alg, pub, params, err := parseAlgBody(algNode)
		if err != nil {
			return nil, err
		}
		return &parsedSExpr{key: SExprKey{Algorithm: alg, Public: pub, Params: params}}, nil
	case "protected-private-key":
		algNode := root.list[1]
		if algNode.isAtom() || len(algNode.list) < 3 {
			return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		alg, ok := algAliases[string(algNode.list[0].atom)]
		if !ok {
			return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
		}
		var pub SExprFields
		var protectedNode *sexpNode
		for _, child := range algNode.list[1:] {
			if child.isAtom() {
				continue
			}
			if len(child.list) == 0 {
				continue
			}
			tag := string(child.list[0].atom)
			if tag == "protected" {
				c := child
				protectedNode = &c
				continue
			}
			if tag == "protected-at" {
				continue
			}
			if len(child.list) >= 2 && child.list[1].isAtom() {
				pub = append(pub, SExprField{Name: tag, Value: child.list[1].atom})
			}
		}
		if protectedNode == nil {
			return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		return &parsedSExpr{
			key:           SExprKey{Algorithm: alg, Public: pub, Protected: true},
			protectedNode: protectedNode,
		}, nil
	default:
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
}

type parsedSExpr struct {
	key           SExprKey
	protectedNode *sexpNode
}

func (p *parsedSExpr) Key() SExprKey { return p.key }

// Unlock derives the KEK from password via the protected node's MODE and
// PARAMS, decrypts the ciphertext, and verifies the embedded SHA-1 hash
// tag over the canonical pub||sec||protected-at form, spec.md 4.E: "Any
// mismatch fails with MAC_INVALID."
func (p *parsedSExpr) Unlock(password []byte) error {
	const op = "keystore.SExprKey.Unlock"
	if p.protectedNode == nil {
		return nil
	}
	node := *p.protectedNode
	if len(node.list) < 4 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	mode, ok := protectionModes[string(node.list[1].atom)]
	if !ok {
		return &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	paramsNode := node.list[2]
	ciphertext := node.list[3].atom
	if paramsNode.isAtom() || len(paramsNode.list) != 2 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	s2kNode := paramsNode.list[0]
	iv := paramsNode.list[1].atom
	if s2kNode.isAtom() || len(s2kNode.list) != 3 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	salt := s2kNode.list[1].atom
	if len(salt) != 8 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	iterations, err := strconv.Atoi(string(s2kNode.list[2].atom))
	if err != nil {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	if len(iv) != mode.nonceLen {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}

	kek, err := deriveIteratedSHA1(salt, password, iterations, mode.cipher.KeySize())
	if err != nil {
		return err
	}

	plain, err := decryptProtected(mode, kek, iv, ciphertext)
	if err != nil {
		return err
	}

	plainNode, _, err := parseSexp(plain)
	if err != nil {
		return err
	}
	if plainNode.isAtom() || len(plainNode.list) < 3 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	secBody := plainNode.list[0]
	hashNode := plainNode.list[1]
	protectedAtNode := plainNode.list[2]
	if hashNode.isAtom() || len(hashNode.list) != 3 {
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	wantHash := hashNode.list[2].atom

	pubForHash := sexpNode{list: []sexpNode{{atom: []byte(algName(p.key.Algorithm))}}}
	for _, field := range p.key.Public {
		pubForHash.list = append(pubForHash.list, sexpNode{list: []sexpNode{{atom: []byte(field.Name)}, {atom: field.Value}}})
	}
	h := sha1.New()
	h.Write(encodeSexp(pubForHash))
	h.Write(encodeSexp(secBody))
	h.Write(encodeSexp(protectedAtNode))
	if !bytes.Equal(h.Sum(nil), wantHash) {
		return &openpgp.Error{Code: openpgp.ErrMACInvalid, Op: op}
	}

	var params SExprFields
	for _, child := range secBody.list[1:] {
		if !child.isAtom() && len(child.list) >= 2 && child.list[1].isAtom() {
			params = append(params, SExprField{Name: string(child.list[0].atom), Value: child.list[1].atom})
		}
	}
	p.key.Params = params
	p.key.Protected = false
	return nil
}

func algName(a openpgp.PublicKeyAlgorithm) string {
	for _, name := range []string{"rsa", "ecdsa", "eddsa", "elg", "dsa"} {
		if algAliases[name] == a {
			return name
		}
	}
	return "rsa"
}

func parseAlgBody(n sexpNode) (openpgp.PublicKeyAlgorithm, SExprFields, SExprFields, error) {
	const op = "keystore.parseAlgBody"
	if n.isAtom() || len(n.list) < 1 {
		return 0, nil, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	alg, ok := algAliases[string(n.list[0].atom)]
	if !ok {
		return 0, nil, nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	// An unprotected private-key list carries public and secret components
	// side by side under one flat field list (e.g. n, e, d, p, q, u for
	// RSA); callers that need only the public half filter by field name.
	var params SExprFields
	for _, c := range n.list[1:] {
		if !c.isAtom() && len(c.list) >= 2 && c.list[1].isAtom() {
			params = append(params, SExprField{Name: string(c.list[0].atom), Value: c.list[1].atom})
		}
	}
	return alg, params, params, nil
}

// deriveIteratedSHA1 runs the iterated+salted S2K rule with an actual
// (not RFC-4880-encoded) iteration count, as the s-expression format's
// ITERATIONS field stores it literally, spec.md 4.E PARAMS.
func deriveIteratedSHA1(salt, password []byte, iterations, keyLen int) ([]byte, error) {
	const op = "keystore.deriveIteratedSHA1"
	full := append(append([]byte(nil), salt...), password...)
	var out []byte
	var zeros []byte
	for len(out) < keyLen {
		h := sha1.New()
		h.Write(zeros)
		absorbed := len(zeros)
		for absorbed+len(full) <= iterations {
			h.Write(full)
			absorbed += len(full)
		}
		if absorbed < iterations {
			h.Write(full[:iterations-absorbed])
		}
		out = append(out, h.Sum(nil)...)
		zeros = append(zeros, 0)
	}
	if len(out) < keyLen {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	return out[:keyLen], nil
}

func decryptProtected(mode protectionMode, kek, iv, ciphertext []byte) ([]byte, error) {
	const op = "keystore.decryptProtected"
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op, Err: err}
	}
	if mode.aead {
		aead, err := oracle.NewOCB(block)
		if err != nil {
			return nil, err
		}
		plain, err := aead.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, &openpgp.Error{Code: openpgp.ErrMACInvalid, Op: op, Err: err}
		}
		return plain, nil
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return unpadX(plain), nil
}

// unpadX strips the trailing run of 'X' padding octets spec.md 4.E's
// s-expression CBC mode uses ("CBC ciphertext is padded with X octets to
// a block boundary; the hash tag allows an exact-length check at
// decryption so the padding is discarded unambiguously"). Since the inner
// plaintext is itself a well-formed canonical S-expression, re-parsing it
// and taking only the consumed prefix discards the padding exactly.
func unpadX(plain []byte) []byte {
	_, rest, err := parseSexp(plain)
	if err != nil {
		return plain
	}
	return plain[:len(plain)-len(rest)]
}

// EncodeProtected serializes params as a fresh protected-private-key body,
// deriving a random salt/IV from the oracle RNG and encrypting under mode.
// pub and params must list their fields in the order the caller wants
// encoded into both the key body and the canonical hash preimage.
func EncodeProtected(alg openpgp.PublicKeyAlgorithm, pub SExprFields, params SExprFields, password []byte, modeName string) ([]byte, error) {
	const op = "keystore.EncodeProtected"
	mode, ok := protectionModes[modeName]
	if !ok {
		return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	salt, err := oracle.DefaultRNG().GetBytes(8)
	if err != nil {
		return nil, err
	}
	iv, err := oracle.DefaultRNG().GetBytes(mode.nonceLen)
	if err != nil {
		return nil, err
	}
	const iterations = 10000000

	secBody := sexpNode{list: []sexpNode{{atom: []byte(algName(alg))}}}
	for _, field := range params {
		secBody.list = append(secBody.list, sexpNode{list: []sexpNode{{atom: []byte(field.Name)}, {atom: field.Value}}})
	}
	protectedAt := sexpNode{list: []sexpNode{{atom: []byte("protected-at")}, {atom: []byte("19700101T000000")}}}

	pubForHash := sexpNode{list: []sexpNode{{atom: []byte(algName(alg))}}}
	for _, field := range pub {
		pubForHash.list = append(pubForHash.list, sexpNode{list: []sexpNode{{atom: []byte(field.Name)}, {atom: field.Value}}})
	}
	h := sha1.New()
	h.Write(encodeSexp(pubForHash))
	h.Write(encodeSexp(secBody))
	h.Write(encodeSexp(protectedAt))
	hashTag := h.Sum(nil)

	plainNode := sexpNode{list: []sexpNode{
		secBody,
		{list: []sexpNode{{atom: []byte("hash")}, {atom: []byte("sha1")}, {atom: hashTag}}},
		protectedAt,
	}}
	plain := encodeSexp(plainNode)

	kek, err := deriveIteratedSHA1(salt, password, iterations, mode.cipher.KeySize())
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op, Err: err}
	}
	var ciphertext []byte
	if mode.aead {
		aead, err := oracle.NewOCB(block)
		if err != nil {
			return nil, err
		}
		ciphertext = aead.Seal(nil, iv, plain, nil)
	} else {
		padded := padX(plain, block.BlockSize())
		ciphertext = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	}

	s2kNode := sexpNode{list: []sexpNode{{atom: []byte("sha1")}, {atom: salt}, {atom: []byte(strconv.Itoa(iterations))}}}
	paramsNode := sexpNode{list: []sexpNode{s2kNode, {atom: iv}}}
	protectedNode := sexpNode{list: []sexpNode{{atom: []byte("protected")}, {atom: []byte(modeName)}, paramsNode, {atom: ciphertext}}}

	algNode := sexpNode{list: []sexpNode{{atom: []byte(algName(alg))}}}
	for _, field := range pub {
		algNode.list = append(algNode.list, sexpNode{list: []sexpNode{{atom: []byte(field.Name)}, {atom: field.Value}}})
	}
	algNode.list = append(algNode.list, protectedNode)
	algNode.list = append(algNode.list, protectedAt)

	root := sexpNode{list: []sexpNode{{atom: []byte("protected-private-key")}, algNode}}
	return encodeSexp(root), nil
}

func padX(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	if n == 0 {
		n = blockSize
	}
	pad := bytes.Repeat([]byte("X"), n)
	return append(append([]byte(nil), data...), pad...)
}
