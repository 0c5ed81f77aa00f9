package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/transcript-registry-backend/api/clients"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/verification"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:    "server-addr",
		Value:   "http://127.0.0.1:8080",
		Usage:   "transcript registry API server address",
		EnvVars: []string{"TRV_SERVER_ADDR"},
	},
	&cli.StringFlag{
		Name:    "key",
		Usage:   "hex private key signing write requests (issuer or admin wallet)",
		EnvVars: []string{"TRV_CALLER_KEY"},
	},
}

const usage string = `Verify and manage transcripts through the API server. Verification
commands exit with status 2 when a credential is not valid.`

func main() {
	app := &cli.App{
		Name:  "verify-client",
		Usage: usage,
		Flags: flags,
		Commands: []*cli.Command{
			{
				Name:      "cid",
				Usage:     "verify a transcript by IPFS CID",
				ArgsUsage: "<cid>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one CID", 1)
					}
					res, err := newClient(cCtx).VerifyCID(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					return verdict(res)
				},
			},
			{
				Name:      "file",
				Usage:     "verify a transcript document by its content hash",
				ArgsUsage: "<path>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one file", 1)
					}
					f, err := os.Open(cCtx.Args().First())
					if err != nil {
						return err
					}
					defer f.Close()
					res, err := newClient(cCtx).VerifyDocument(cCtx.Context, filepath.Base(f.Name()), f)
					if err != nil {
						return err
					}
					return verdict(res)
				},
			},
			{
				Name:      "batch",
				Usage:     "verify several CIDs in one request",
				ArgsUsage: "<cid>...",
				Action: func(cCtx *cli.Context) error {
					items, err := newClient(cCtx).BatchVerifyCIDs(cCtx.Context, cCtx.Args().Slice())
					if err != nil {
						return err
					}
					if err := printJSON(items); err != nil {
						return err
					}
					for _, item := range items {
						if item.Result == nil || !item.Result.Valid {
							return cli.Exit("", 2)
						}
					}
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "show credential statistics",
				Action: func(cCtx *cli.Context) error {
					stats, err := newClient(cCtx).Stats(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(stats)
				},
			},
			{
				Name:  "issue",
				Usage: "upload and issue a transcript with the server's institution key (needs --key of an issuer)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true},
					&cli.StringFlag{Name: "student", Required: true, Usage: "student wallet address"},
					&cli.StringFlag{Name: "degree", Required: true, Usage: "degree type, e.g. MASTER"},
					&cli.Uint64Flag{Name: "year", Required: true},
					&cli.StringFlag{Name: "student-id"},
				},
				Action: issue,
			},
			{
				Name:      "revoke",
				Usage:     "revoke an issued credential",
				ArgsUsage: "<credential id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "reason"}},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one credential ID", 1)
					}
					res, err := newClient(cCtx).Revoke(cCtx.Context, cCtx.Args().First(), cCtx.String("reason"))
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.TranscriptClient {
	return &clients.TranscriptClient{ServerAddr: cCtx.String("server-addr")}
}

func newSigningClient(cCtx *cli.Context) (*clients.TranscriptClient, error) {
	if cCtx.String("key") == "" {
		return nil, cli.Exit("write commands need --key or TRV_CALLER_KEY", 1)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cCtx.String("key"), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid caller key: %w", err)
	}
	c := newClient(cCtx)
	c.Key = key
	return c, nil
}

func issue(cCtx *cli.Context) error {
	student, err := interfaces.ParseAddress(cCtx.String("student"))
	if err != nil {
		return err
	}
	degree, err := interfaces.ParseDegreeType(cCtx.String("degree"))
	if err != nil {
		return err
	}
	f, err := os.Open(cCtx.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := newSigningClient(cCtx)
	if err != nil {
		return err
	}
	res, err := c.Issue(cCtx.Context, clients.IssueForm{
		FileName:       filepath.Base(f.Name()),
		Document:       f,
		StudentAddress: student,
		StudentID:      cCtx.String("student-id"),
		DegreeType:     degree,
		GraduationYear: cCtx.Uint64("year"),
	})
	if err != nil {
		return fmt.Errorf("issuance failed: %w", err)
	}
	return printJSON(res)
}

func verdict(res *verification.Result) error {
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Valid {
		return cli.Exit("", 2)
	}
	return nil
}

func printJSON(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
