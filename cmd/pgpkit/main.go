// This is free and unencumbered software released into the public domain.

package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"nullprogram.com/x/optparse"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/keystore"
	"github.com/pgpkit/pgpkit/pipeline"
)

const (
	kdfTime   = 8
	kdfMemory = 1024 * 1024 // 1 GB
)

const (
	cmdKey = iota
	cmdSign
	cmdClearsign
	cmdVerify
	cmdEncrypt
	cmdDecrypt
	cmdDump
)

const (
	formatPGP = iota
	formatSSH
	formatJSON
)

// fatal prints the message like fmt.Printf() and then os.Exit(1), the
// teacher's one piece of ambient diagnostics plumbing.
func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("pgpkit: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(1)
}

// readPassphrase reads and confirms the passphrase per the user's
// preference, exactly the dispatch the teacher's own readPassphrase did.
func readPassphrase(config *config) ([]byte, error) {
	if config.pinentry != "" {
		return pinentryPassphrase(config.pinentry, config.repeat)
	}
	return terminalPassphrase(config.repeat)
}

// kdf derives a 64-byte seed from the given passphrase: 32 bytes for the
// primary key, 32 for the encryption subkey. The scale factor scales up
// the difficulty proportional to scale*scale, unchanged from the teacher.
func kdf(passphrase, uid []byte, scale int) []byte {
	kdfTimeU := uint32(kdfTime * scale)
	memory := uint32(kdfMemory * scale)
	threads := uint8(1)
	return argon2.IDKey(passphrase, uid, kdfTimeU, memory, threads, 64)
}

type config struct {
	cmd  int
	args []string

	armor    bool
	check    []byte
	format   int
	help     bool
	input    string
	load     string
	pinentry string
	public   bool
	repeat   int
	subkey   bool
	created  int64
	uid      string
	verbose  bool

	keystorePath string
	recipients   []string
	request      string
	output       string
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	b := "      "
	p := "pgpkit"
	f := func(s ...interface{}) {
		fmt.Fprintln(bw, s...)
	}
	f("Usage:")
	f(i, p, "<-u id|-l key> [-hv] [-c id] [-e[cmd]] [-i pwfile]")
	f(b, "-K [-anps] [-f pgp|json] [-j request.json] [-r n] [-t secs]")
	f(b, "-S [-a] [-r n] [files...]")
	f(b, "-T [-r n] >doc-signed.txt <doc.txt")
	f(b, "-V -k store.pgp doc.sig [doc]")
	f(b, "-E -k store.pgp -R keyid [-a] <doc >doc.pgp")
	f(b, "-U -k store.pgp <doc.pgp >doc")
	f(b, "-D [files...]")
	f("Commands:")
	f(i, "-K, --key              output a key (default)")
	f(i, "-S, --sign             output detached signatures")
	f(i, "-T, --clearsign        output a cleartext signature")
	f(i, "-V, --verify           verify a detached signature")
	f(i, "-E, --encrypt          encrypt data to one or more recipients")
	f(i, "-U, --decrypt          decrypt data")
	f(i, "-D, --dump             dump packet structure (diagnostic)")
	f("Options:")
	f(i, "-a, --armor            encode output in ASCII armor")
	f(i, "-c, --check KEYID      require last Key ID bytes to match")
	f(i, "-f, --format pgp|json  select key format [pgp]")
	f(i, "-h, --help             print this help message")
	f(i, "-i, --input FILE       read passphrase from file")
	f(i, "-j, --request FILE     JSON generate-key request")
	f(i, "-k, --keystore FILE    key store file for verify/encrypt/decrypt")
	f(i, "-l, --load FILE        load key from a key store instead of generating")
	f(i, "-n, --now              use current time as creation date")
	f(i, "-o, --output FILE      write output to FILE instead of stdout")
	f(i, "-e, --pinentry[=CMD]   use pinentry to read the passphrase")
	f(i, "-p, --public           only output the public key")
	f(i, "-R, --recipient KEYID  encrypt to this recipient (repeatable)")
	f(i, "-r, --repeat N         number of repeated passphrase prompts")
	f(i, "-s, --subkey           also output an encryption subkey")
	f(i, "-t, --time SECONDS     key creation date (unix epoch seconds)")
	f(i, "-u, --uid USERID       user ID for the key")
	f(i, "-v, --verbose          print additional information")
	bw.Flush()
}

func parse() *config {
	conf := config{
		cmd:    cmdKey,
		format: formatPGP,
		repeat: 1,
	}

	options := []optparse.Option{
		{"sign", 'S', optparse.KindNone},
		{"keygen", 'K', optparse.KindNone},
		{"clearsign", 'T', optparse.KindNone},
		{"verify", 'V', optparse.KindNone},
		{"encrypt", 'E', optparse.KindNone},
		{"decrypt", 'U', optparse.KindNone},
		{"dump", 'D', optparse.KindNone},

		{"armor", 'a', optparse.KindNone},
		{"check", 'c', optparse.KindRequired},
		{"format", 'f', optparse.KindRequired},
		{"help", 'h', optparse.KindNone},
		{"input", 'i', optparse.KindRequired},
		{"request", 'j', optparse.KindRequired},
		{"keystore", 'k', optparse.KindRequired},
		{"load", 'l', optparse.KindRequired},
		{"now", 'n', optparse.KindNone},
		{"output", 'o', optparse.KindRequired},
		{"public", 'p', optparse.KindNone},
		{"pinentry", 'e', optparse.KindOptional},
		{"recipient", 'R', optparse.KindRequired},
		{"repeat", 'r', optparse.KindRequired},
		{"subkey", 's', optparse.KindNone},
		{"time", 't', optparse.KindRequired},
		{"uid", 'u', optparse.KindRequired},
		{"verbose", 'v', optparse.KindNone},
	}

	var repeatSeen bool
	var uidSeen bool

	args := os.Args
	if len(args) == 4 && args[1] == "--status-fd=2" && args[2] == "-bsau" {
		// Pretend to be GnuPG in order to sign for Git. Fragile, but
		// there is no practical way to avoid it: Git's documentation
		// says it depends on the GnuPG interface without being
		// specific, so the only robust fix is reimplementing that
		// whole interface.
		args = []string{args[0], "--sign", "--armor", "--uid", args[3]}
		os.Stderr.WriteString("\n[GNUPG:] SIG_CREATED ")
	}

	results, rest, err := optparse.Parse(options, args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, result := range results {
		switch result.Long {
		case "sign":
			conf.cmd = cmdSign
		case "keygen":
			conf.cmd = cmdKey
		case "clearsign":
			conf.cmd = cmdClearsign
		case "verify":
			conf.cmd = cmdVerify
		case "encrypt":
			conf.cmd = cmdEncrypt
		case "decrypt":
			conf.cmd = cmdDecrypt
		case "dump":
			conf.cmd = cmdDump

		case "armor":
			conf.armor = true
		case "check":
			check, err := hex.DecodeString(result.Optarg)
			if err != nil {
				fatal("%s: %q", err, result.Optarg)
			}
			conf.check = check
		case "format":
			switch result.Optarg {
			case "pgp":
				conf.format = formatPGP
			case "ssh":
				conf.format = formatSSH
			case "json":
				conf.format = formatJSON
			default:
				fatal("invalid format: %s", result.Optarg)
			}
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		case "input":
			conf.input = result.Optarg
		case "request":
			conf.request = result.Optarg
		case "keystore":
			conf.keystorePath = result.Optarg
		case "load":
			conf.load = result.Optarg
		case "now":
			conf.created = time.Now().Unix()
		case "output":
			conf.output = result.Optarg
		case "pinentry":
			if result.Optarg != "" {
				conf.pinentry = result.Optarg
			} else {
				conf.pinentry = "pinentry"
			}
		case "public":
			conf.public = true
		case "recipient":
			conf.recipients = append(conf.recipients, result.Optarg)
		case "repeat":
			repeat, err := strconv.Atoi(result.Optarg)
			if err != nil {
				fatal("--repeat (-r): %s", err)
			}
			conf.repeat = repeat
			repeatSeen = true
		case "subkey":
			conf.subkey = true
		case "time":
			created, err := strconv.ParseUint(result.Optarg, 10, 32)
			if err != nil {
				fatal("--time (-t): %s", err)
			}
			conf.created = int64(created)
		case "uid":
			conf.uid = result.Optarg
			if len(conf.uid) > 255 {
				fatal("user ID length must be <= 255 bytes")
			}
			if !utf8.ValidString(conf.uid) {
				fatal("user ID must be valid UTF-8")
			}
			uidSeen = true
		case "verbose":
			conf.verbose = true
		}
	}

	if conf.cmd == cmdKey && !uidSeen && conf.load == "" && conf.request == "" {
		// Using os.Getenv instead of os.LookupEnv because empty is just
		// as good as not set. It means a user can do something like:
		// $ EMAIL= pgpkit ...
		if email := os.Getenv("EMAIL"); email != "" {
			if realname := os.Getenv("REALNAME"); realname != "" {
				conf.uid = fmt.Sprintf("%s <%s>", realname, email)
			}
		}
		if conf.uid == "" {
			fatal("--uid, --load or --request required (or $REALNAME and $EMAIL)")
		}
	}

	if conf.check == nil {
		check, err := hex.DecodeString(os.Getenv("KEYID"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: $KEYID invalid, ignoring it\n")
		} else {
			conf.check = check
		}
	}
	if len(conf.check) > 0 && !repeatSeen {
		conf.repeat = 0
	}

	conf.args = rest
	switch conf.cmd {
	case cmdKey:
		if len(conf.args) > 0 {
			fatal("too many arguments")
		}
	case cmdSign, cmdVerify, cmdEncrypt, cmdDecrypt, cmdDump:
		// file lists are processed elsewhere
	case cmdClearsign:
		if len(conf.args) > 1 {
			fatal("too many arguments")
		}
	}

	return &conf
}

// openOutput returns the writer config.output names, or os.Stdout when it
// is empty, matching the teacher's stdout-by-default behavior while
// generalizing past its hard-coded os.Stdout.Write calls.
func openOutput(config *config) (io.Writer, func(), error) {
	if config.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(config.output)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// loadKeystore reads config.keystorePath into a Store, the source of key
// material for verify, encrypt-recipient resolution, and decrypt.
func loadKeystore(config *config) (*keystore.Store, error) {
	if config.keystorePath == "" {
		return keystore.NewStore(keystore.FormatUnknown), nil
	}
	buf, err := os.ReadFile(config.keystorePath)
	if err != nil {
		return nil, err
	}
	store := keystore.NewStore(keystore.FormatUnknown)
	if err := store.Load(buf); err != nil {
		return nil, err
	}
	if err := pipeline.VerifyCollectionBindings(store.Keys); err != nil {
		fmt.Fprintf(os.Stderr, "pgpkit: warning: %s: subkey binding self-verification failed: %v\n", config.keystorePath, err)
	}
	return store, nil
}

func main() {
	config := parse()

	switch config.cmd {
	case cmdKey:
		runKeygen(config)
	case cmdSign:
		runSign(config)
	case cmdClearsign:
		runClearsign(config)
	case cmdVerify:
		runVerify(config)
	case cmdEncrypt:
		runEncrypt(config)
	case cmdDecrypt:
		runDecrypt(config)
	case cmdDump:
		runDump(config)
	}
}

// runKeygen implements -K: a key is produced from (in priority order) a
// JSON request, a loaded key store, or the teacher's own signature move —
// an Argon2id-stretched passphrase deterministically seeding an Ed25519
// primary plus (with -s) an X25519 encryption subkey.
func runKeygen(config *config) {
	var primary *keymodel.Key
	var subkeys []*keymodel.Key

	switch {
	case config.load != "":
		buf, err := os.ReadFile(config.load)
		if err != nil {
			fatal("%s", err)
		}
		store := keystore.NewStore(keystore.FormatUnknown)
		if err := store.Load(buf); err != nil {
			fatal("%s", err)
		}
		for _, k := range store.Keys.All() {
			if k.IsSubkey {
				subkeys = append(subkeys, k)
			} else if primary == nil {
				primary = k
			}
		}
		if primary == nil {
			fatal("%s: no key found", config.load)
		}
		if config.created == 0 {
			config.created = primary.Public.Created
		}

	case config.request != "":
		buf, err := os.ReadFile(config.request)
		if err != nil {
			fatal("%s", err)
		}
		var reqJSON generateKeyRequestJSON
		if err := json.Unmarshal(buf, &reqJSON); err != nil {
			fatal("%s", err)
		}
		req, err := reqJSON.toRequest()
		if err != nil {
			fatal("%s", err)
		}
		var sub *keymodel.Key
		primary, sub, err = pipeline.GenerateKey(req)
		if err != nil {
			fatal("%s", err)
		}
		if sub != nil {
			subkeys = append(subkeys, sub)
		}

	default:
		if config.verbose {
			fmt.Fprintf(os.Stderr, "User ID: %s\n", config.uid)
		}
		var passphrase []byte
		var err error
		if config.input != "" {
			passphrase, err = firstLine(config.input)
		} else {
			passphrase, err = readPassphrase(config)
		}
		if err != nil {
			fatal("%s", err)
		}

		seed := kdf(passphrase, []byte(config.uid), 1)
		created := config.created
		if created == 0 {
			created = time.Now().Unix()
		}
		primary, err = pipeline.GenerateKeyFromSeed(pipeline.GenerateRequest{
			UserID: []byte(config.uid), PrimaryAlgo: openpgp.PubKeyEdDSA, Created: created,
		}, seed[:32])
		if err != nil {
			fatal("%s", err)
		}
		if config.subkey {
			sub, err := pipeline.AddSubkeyFromSeed(primary, seed[32:], created)
			if err != nil {
				fatal("%s", err)
			}
			subkeys = append(subkeys, sub)
		}
	}

	if config.verbose {
		fmt.Fprintf(os.Stderr, "Key ID: %X\n", primary.Public.KeyID())
	}
	if len(config.check) > 0 {
		id := primary.Public.KeyID()
		if len(config.check) > len(id) || !bytes.Equal(config.check, id[len(id)-len(config.check):]) {
			fatal("Key ID does not match --check (-c):\n  %X != %X", id, config.check)
		}
	}

	out, closeOut, err := openOutput(config)
	if err != nil {
		fatal("%s", err)
	}
	defer closeOut()

	switch config.format {
	case formatJSON:
		dump := newKeyDumpJSON(primary, subkeys)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dump); err != nil {
			fatal("%s", err)
		}
	default:
		outputKey(out, config, primary, subkeys)
	}
}

// outputKey emits primary (and subkeys) as a transferable OpenPGP key
// stream, stripping secret material first when config.public is set.
func outputKey(w io.Writer, config *config, primary *keymodel.Key, subkeys []*keymodel.Key) {
	all := []*keymodel.Key{primary}
	all = append(all, subkeys...)
	if config.public {
		all = publicOnly(all)
	}
	output := keystore.WriteTransferable(all)
	if config.armor {
		frame := openpgp.FrameSecretKey
		if config.public {
			frame = openpgp.FramePublicKey
		}
		output = openpgp.Armor(frame, nil, output)
	}
	if _, err := w.Write(output); err != nil {
		fatal("%s", err)
	}
}

func publicOnly(keys []*keymodel.Key) []*keymodel.Key {
	out := make([]*keymodel.Key, len(keys))
	for i, k := range keys {
		cp := *k
		cp.Secret = nil
		out[i] = &cp
	}
	return out
}

// runSign implements -S: detached signatures, stdin->stdout or file by
// file, unchanged in shape from the teacher beyond drawing the signer
// from a key store instead of a freshly derived key.
func runSign(config *config) {
	primary, all := requireSigner(config)
	ctx := pipeline.NewContext(passphraseProvider(config), collectionProvider{all})
	op := pipeline.SignOp{Signer: primary, Armor: config.armor}

	if len(config.args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal("%s", err)
		}
		output, err := pipeline.Sign(ctx, all, op, data)
		if err != nil {
			fatal("%s", err)
		}
		if _, err := os.Stdout.Write(output); err != nil {
			fatal("%s", err)
		}
		return
	}

	ext := ".sig"
	if config.armor {
		ext = ".asc"
	}
	for _, infile := range config.args {
		data, err := os.ReadFile(infile)
		if err != nil {
			fatal("%s: %s", err, infile)
		}
		output, err := pipeline.Sign(ctx, all, op, data)
		if err != nil {
			fatal("%s: %s", err, infile)
		}
		outfile := infile + ext
		if err := os.WriteFile(outfile, output, 0o644); err != nil {
			fatal("%s: %s", err, outfile)
		}
	}
}

// runVerify implements -V: verify a detached signature named by the first
// argument against data (the second argument, or stdin when only the
// signature is named), using --keystore as the key source. The signature
// is never read from stdin.
func runVerify(config *config) {
	store, err := loadKeystore(config)
	if err != nil {
		fatal("%s", err)
	}
	if store.Keys.All() == nil {
		fatal("--keystore is required for --verify")
	}

	var sigBytes, data []byte
	switch len(config.args) {
	case 0:
		fatal("usage: pgpkit -V -k store.pgp sig.asc [data]")
	case 1:
		sigBytes, err = os.ReadFile(config.args[0])
		if err != nil {
			fatal("%s", err)
		}
		data, err = io.ReadAll(os.Stdin)
	default:
		sigBytes, err = os.ReadFile(config.args[0])
		if err == nil {
			data, err = os.ReadFile(config.args[1])
		}
	}
	if err != nil {
		fatal("%s", err)
	}

	if bytes.HasPrefix(bytes.TrimSpace(sigBytes), []byte("-----")) {
		_, _, dearmored, derr := openpgp.Dearmor(bytes.NewReader(sigBytes))
		if derr != nil {
			fatal("%s", derr)
		}
		sigBytes = dearmored
	}
	packets, err := openpgp.NewReader(sigBytes).All()
	if err != nil || len(packets) == 0 || packets[0].Tag != openpgp.TagSignature {
		fatal("not a signature packet")
	}
	sig, err := openpgp.ParseSignature(packets[0].Body)
	if err != nil {
		fatal("%s", err)
	}

	res := pipeline.VerifyWithCollection(store.Keys, data, sig)
	if res.Err != nil || !res.Valid {
		fatal("signature verification failed: %v", res.Err)
	}
	fmt.Fprintf(os.Stderr, "Good signature from key %X\n", sig.Issuer)
}

// runEncrypt implements -E: encrypt stdin to stdout for every --recipient
// found in --keystore.
func runEncrypt(config *config) {
	store, err := loadKeystore(config)
	if err != nil {
		fatal("%s", err)
	}
	var recipients []*keymodel.Key
	for _, suffix := range config.recipients {
		matches := store.Keys.ByKeyIDSuffix(suffix)
		if len(matches) == 0 {
			fatal("recipient %s not found in keystore", suffix)
		}
		recipients = append(recipients, matches[0])
	}
	if len(recipients) == 0 {
		fatal("--recipient is required for --encrypt")
	}

	plaintext, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal("%s", err)
	}
	ctx := pipeline.NewContext(passphraseProvider(config), collectionProvider{store.Keys})
	message, err := pipeline.Encrypt(ctx, store.Keys, pipeline.EncryptOp{Recipients: recipients}, plaintext)
	if err != nil {
		fatal("%s", err)
	}
	if config.armor {
		message = openpgp.Armor(openpgp.FrameMessage, nil, message)
	}
	if _, err := os.Stdout.Write(message); err != nil {
		fatal("%s", err)
	}
}

// runDecrypt implements -U: decrypt stdin to stdout using --keystore for
// key material (passwords, if needed, come from the same passphrase
// sources as --key).
func runDecrypt(config *config) {
	store, err := loadKeystore(config)
	if err != nil {
		fatal("%s", err)
	}
	message, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal("%s", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(message), []byte("-----")) {
		_, _, dearmored, derr := openpgp.Dearmor(bytes.NewReader(message))
		if derr != nil {
			fatal("%s", derr)
		}
		message = dearmored
	}
	ctx := pipeline.NewContext(passphraseProvider(config), collectionProvider{store.Keys})
	plaintext, err := pipeline.Decrypt(ctx, store.Keys, message)
	if err != nil {
		fatal("%s", err)
	}
	if _, err := os.Stdout.Write(plaintext); err != nil {
		fatal("%s", err)
	}
}

// runDump implements -D: the redumper-style diagnostic packet dump.
func runDump(config *config) {
	out, closeOut, err := openOutput(config)
	if err != nil {
		fatal("%s", err)
	}
	defer closeOut()

	if len(config.args) == 0 {
		if err := openpgp.Dump(out, os.Stdin); err != nil {
			fatal("%s", err)
		}
		return
	}
	for _, infile := range config.args {
		f, err := os.Open(infile)
		if err != nil {
			fatal("%s", err)
		}
		fmt.Fprintf(out, "== %s ==\n", infile)
		err = openpgp.Dump(out, f)
		f.Close()
		if err != nil {
			fatal("%s: %s", err, infile)
		}
	}
}

// runClearsign implements -T, following the teacher's own
// SignKey.Clearsign canonicalization exactly: each line has trailing
// space/tab trimmed before it contributes to the hash, lines are joined by
// CRLF with no CRLF before the first or after the last, and the
// transmitted form dash-escapes that same trimmed line.
func runClearsign(config *config) {
	primary, all := requireSigner(config)
	ctx := pipeline.NewContext(passphraseProvider(config), collectionProvider{all})

	var data []byte
	var err error
	if len(config.args) == 1 {
		data, err = os.ReadFile(config.args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fatal("%s", err)
	}

	lines := bytes.Split(bytes.TrimSuffix(data, []byte("\n")), []byte("\n"))
	var hashed bytes.Buffer
	for i, line := range lines {
		line = trimTrailingSpaceTab(line)
		if i > 0 {
			hashed.WriteString("\r\n")
		}
		hashed.Write(line)
	}

	sig, err := pipeline.Sign(ctx, all, pipeline.SignOp{Signer: primary, Text: true}, hashed.Bytes())
	if err != nil {
		fatal("%s", err)
	}

	out := bufio.NewWriter(os.Stdout)
	out.WriteString("-----BEGIN PGP SIGNED MESSAGE-----\nHash: SHA256\n\n")
	for _, line := range lines {
		out.Write(openpgp.DashEscape(trimTrailingSpaceTab(line)))
		out.WriteByte('\n')
	}
	out.Write(openpgp.Armor(openpgp.FrameSignature, nil, sig))
	if err := out.Flush(); err != nil {
		fatal("%s", err)
	}
}

func trimTrailingSpaceTab(line []byte) []byte {
	for len(line) > 0 {
		last := line[len(line)-1]
		if last == ' ' || last == '\t' {
			line = line[:len(line)-1]
			continue
		}
		break
	}
	return line
}

// requireSigner loads the signing key for -S/-T from --load or
// --keystore: the CLI never regenerates a signing key on the fly.
func requireSigner(config *config) (*keymodel.Key, *keymodel.Collection) {
	path := config.load
	if path == "" {
		path = config.keystorePath
	}
	if path == "" {
		fatal("--load or --keystore is required to sign")
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		fatal("%s", err)
	}
	store := keystore.NewStore(keystore.FormatUnknown)
	if err := store.Load(buf); err != nil {
		fatal("%s", err)
	}
	for _, k := range store.Keys.All() {
		if !k.IsSubkey {
			return k, store.Keys
		}
	}
	fatal("%s: no key found", path)
	return nil, nil
}

// passphraseProvider adapts the CLI's interactive/file passphrase source
// into a pipeline.PasswordProvider for unlocking a loaded secret key.
type passphraseConfigProvider struct{ config *config }

func (p passphraseConfigProvider) GetPassword(pipeline.Op, *keymodel.Key) ([]byte, bool) {
	var pass []byte
	var err error
	if p.config.input != "" {
		pass, err = firstLine(p.config.input)
	} else {
		pass, err = readPassphrase(p.config)
	}
	if err != nil {
		return nil, false
	}
	return pass, true
}

func passphraseProvider(config *config) pipeline.PasswordProvider {
	return passphraseConfigProvider{config}
}

// collectionProvider adapts a keymodel.Collection into a
// pipeline.KeyProvider, resolving by exact key ID across every key
// (primary and subkeys) the collection holds.
type collectionProvider struct{ all *keymodel.Collection }

func (r collectionProvider) FindKey(_ pipeline.Op, keyID []byte) (*keymodel.Key, bool) {
	for _, k := range r.all.All() {
		if k.Public != nil && bytes.Equal(k.Public.KeyID(), keyID) {
			return k, true
		}
	}
	return nil, false
}
