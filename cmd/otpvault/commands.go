package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
	"github.com/jeremyhahn/go-otpvault/pkg/importer"
	"github.com/jeremyhahn/go-otpvault/pkg/store"
	"github.com/jeremyhahn/go-otpvault/pkg/token"
)

var (
	errNoMatch   = errors.New("no token matches")
	errAmbiguous = errors.New("more than one token matches")
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// open prompts for the password and loads the store.
func (a *app) open() ([]store.Entry, error) {
	pw, err := a.prompt("Password: ")
	if err != nil {
		return nil, err
	}
	return a.store.Load(pw)
}

// find resolves an id, an id prefix or an exact label to a single entry.
func find(entries []store.Entry, ref string) (store.Entry, error) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, e := range entries {
			if e.ID == id {
				return e, nil
			}
		}
		return store.Entry{}, fmt.Errorf("%w %q", errNoMatch, ref)
	}

	var matches []store.Entry
	prefix := strings.ToLower(ref)
	for _, e := range entries {
		if e.Token.Label() == ref || strings.HasPrefix(e.ID.String(), prefix) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return store.Entry{}, fmt.Errorf("%w %q", errNoMatch, ref)
	case 1:
		return matches[0], nil
	}
	return store.Entry{}, fmt.Errorf("%w %q", errAmbiguous, ref)
}

func shortID(id uuid.UUID) string { return id.String()[:8] }

func cmdInit(a *app, args []string) error {
	fs := newFlagSet("init")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	pw, err := a.newPassword("New password: ")
	if err != nil {
		return err
	}
	if err := a.store.Initialize(pw); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Initialized empty store at %s\n", a.store.Path())
	return nil
}

func cmdList(a *app, args []string) error {
	fs := newFlagSet("list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	entries, err := a.open()
	if err != nil {
		return err
	}

	now := a.now()
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tLABEL\tCODE\tEXPIRES")
	for _, e := range entries {
		tok := e.Token
		code, expires := "-", fmt.Sprintf("counter %d", tok.Counter())
		if tok.IsTimeBased() {
			c, err := tok.GenerateCodeAt(now)
			if err != nil {
				a.logger.Warn("code generation failed", zap.String("label", tok.Label()), zap.Error(err))
				c = "error"
			}
			code = c
			expires = fmt.Sprintf("%ds", int(tok.Remaining(now).Seconds()))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(e.ID), tok.Kind(), tok.Label(), code, expires)
	}
	return tw.Flush()
}

func cmdAdd(a *app, args []string) error {
	fs := newFlagSet("add")
	kind := fs.String("kind", "totp", "token kind: totp, hotp or steam")
	label := fs.String("label", "", "token label, conventionally issuer:account")
	icon := fs.String("icon", "", "icon reference")
	secret := fs.String("secret", "", "base32 secret; a random one is generated when empty")
	secret64 := fs.String("secret-base64", "", "base64 secret, as exported for Steam")
	digits := fs.Uint("digits", 0, "code length")
	period := fs.Uint("period", 0, "period in seconds for totp")
	algorithm := fs.String("algorithm", "", "SHA1, SHA256 or SHA512")
	counter := fs.Uint64("counter", 0, "initial hotp counter")
	uri := fs.String("uri", "", "otpauth:// key URI")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		tok       token.Token
		generated bool
		err       error
	)
	if *uri != "" {
		tok, err = token.ParseURI(*uri)
		if err != nil {
			return err
		}
		if *label != "" {
			tok.SetLabel(*label)
		}
	} else {
		if *label == "" {
			return fmt.Errorf("%w: -label is required", errUsage)
		}
		k, err := token.ParseKind(*kind)
		if err != nil {
			return err
		}
		tok, err = token.New(k, *label)
		if err != nil {
			return err
		}

		switch {
		case *secret != "":
			err = tok.SetSecretBase32(*secret)
		case *secret64 != "":
			err = tok.SetSecretBase64(*secret64)
		default:
			var raw []byte
			raw, err = token.GenerateSecret()
			tok.SetSecret(raw)
			generated = true
		}
		if err != nil {
			return err
		}
		if *digits > 0 {
			if err := tok.SetDigits(*digits); err != nil {
				return err
			}
		}
		if *period > 0 {
			if err := tok.SetPeriod(*period); err != nil {
				return err
			}
		}
		if *algorithm != "" {
			alg, err := codec.ParseAlgorithm(*algorithm)
			if err != nil {
				return err
			}
			if err := tok.SetAlgorithm(alg); err != nil {
				return err
			}
		}
		tok.SetCounter(*counter)
	}
	if *icon != "" {
		tok.SetIcon(*icon)
	}

	if _, err := a.open(); err != nil {
		return err
	}
	id, err := a.store.Insert(tok)
	if err != nil {
		return err
	}
	if err := a.store.Save(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added %s %s\n", shortID(id), tok.Label())
	if generated {
		fmt.Fprintf(a.out, "Secret: %s\nURI: %s\n", tok.SecretBase32(), tok.URI(""))
	}
	return nil
}

func cmdRemove(a *app, args []string) error {
	fs := newFlagSet("remove")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: remove takes exactly one token reference", errUsage)
	}

	entries, err := a.open()
	if err != nil {
		return err
	}
	e, err := find(entries, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := a.store.Remove(e.ID); err != nil {
		return err
	}
	if err := a.store.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s %s\n", shortID(e.ID), e.Token.Label())
	return nil
}

// cmdNext prints the current code. HOTP counters are advanced and saved
// before the code is shown, so a printed code is never reissued.
func cmdNext(a *app, args []string) error {
	fs := newFlagSet("next")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: next takes exactly one token reference", errUsage)
	}

	entries, err := a.open()
	if err != nil {
		return err
	}
	e, err := find(entries, fs.Arg(0))
	if err != nil {
		return err
	}

	tok := e.Token
	code, err := tok.GenerateCodeAt(a.now())
	if err != nil {
		return err
	}
	if tok.Kind() == token.KindHOTP {
		tok.IncrementCounter()
		if err := a.store.Update(e.ID, tok); err != nil {
			return err
		}
		if err := a.store.Save(); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, code)
	return nil
}

func cmdVerify(a *app, args []string) error {
	fs := newFlagSet("verify")
	skew := fs.Uint("skew", 1, "periods of clock skew tolerated for time-based tokens")
	window := fs.Uint("window", 10, "look-ahead window for hotp counters")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: verify takes a token reference and a code", errUsage)
	}

	entries, err := a.open()
	if err != nil {
		return err
	}
	e, err := find(entries, fs.Arg(0))
	if err != nil {
		return err
	}

	tok := e.Token
	if tok.Kind() != token.KindHOTP {
		if err := tok.Verify(fs.Arg(1), a.now(), *skew); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "valid")
		return nil
	}

	next, err := tok.VerifyCounter(fs.Arg(1), *window)
	if err != nil {
		return err
	}
	tok.SetCounter(next)
	if err := a.store.Update(e.ID, tok); err != nil {
		return err
	}
	if err := a.store.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "valid, counter now %d\n", next)
	return nil
}

func cmdImport(a *app, args []string) error {
	fs := newFlagSet("import")
	schemaName := fs.String("schema", "totp", "backup schema: totp or native")
	formatName := fs.String("format", "xml", "backup transport: xml or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import takes exactly one file", errUsage)
	}

	schema, err := importer.ParseSchema(*schemaName)
	if err != nil {
		return err
	}
	tr, err := importer.ParseTransport(*formatName)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if _, err := a.open(); err != nil {
		return err
	}
	imp := importer.New(importer.WithLogger(a.logger.Named("importer")))
	imported, report, err := imp.Import(data, schema, tr, nil)
	if err != nil {
		return err
	}
	for _, tok := range imported {
		if _, err := a.store.Insert(tok); err != nil {
			return err
		}
	}
	if err := a.store.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d tokens, skipped %d\n", report.Imported, report.Skipped)
	return nil
}

func cmdPasswd(a *app, args []string) error {
	fs := newFlagSet("passwd")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	old, err := a.prompt("Current password: ")
	if err != nil {
		return err
	}
	defer wipe(old)
	if _, err := a.store.Load(append([]byte(nil), old...)); err != nil {
		return err
	}

	pw, err := a.newPassword("New password: ")
	if err != nil {
		return err
	}
	if err := a.store.ChangePassword(old, pw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

type exportRecord struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Label string `yaml:"label"`
	URI   string `yaml:"uri"`
}

func cmdExport(a *app, args []string) error {
	fs := newFlagSet("export")
	issuer := fs.String("issuer", "", "issuer to add to every URI")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	entries, err := a.open()
	if err != nil {
		return err
	}
	doc := struct {
		Tokens []exportRecord `yaml:"tokens"`
	}{Tokens: make([]exportRecord, 0, len(entries))}
	for _, e := range entries {
		doc.Tokens = append(doc.Tokens, exportRecord{
			ID:    e.ID.String(),
			Kind:  e.Token.Kind().String(),
			Label: e.Token.Label(),
			URI:   e.Token.URI(*issuer),
		})
	}

	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return enc.Close()
}
