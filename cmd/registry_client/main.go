package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/transcript-registry-backend/cmd/flags"
	"github.com/ruteri/transcript-registry-backend/config"
	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metadata"
	"github.com/ruteri/transcript-registry-backend/registry"
	"github.com/ruteri/transcript-registry-backend/storage"
)

var flagAddress = &cli.StringFlag{
	Name:     "address",
	Required: true,
	Usage:    "institution or student wallet address (0x-prefixed)",
}
var flagCID = &cli.StringFlag{
	Name:     "cid",
	Required: true,
	Usage:    "IPFS CID of the transcript",
}

const usage = `Operate the institution and transcript registry contracts directly.
Settings are read from --config and TRV_* environment variables; state-changing
commands need TRV_SIGNER_KEY.`

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: usage,
		Flags: slices.Concat([]cli.Flag{flags.ConfigFileFlag, flags.RpcAddrFlag}, flags.LogFlags),
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "self-register the signer as an institution",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "country"},
					&cli.StringFlag{Name: "accredited-url"},
					&cli.StringFlag{Name: "email"},
				},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					receipt, err := c.reg.RegisterInstitution(cCtx.Context, cCtx.String("name"), cCtx.String("country"), cCtx.String("accredited-url"), cCtx.String("email"))
					if err != nil {
						return err
					}
					return printJSON(receipt)
				}),
			},
			{
				Name:  "verify",
				Usage: "verify an institution (admin only)",
				Flags: []cli.Flag{flagAddress},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					addr, err := interfaces.ParseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					receipt, err := c.reg.VerifyInstitution(cCtx.Context, addr)
					if err != nil {
						return err
					}
					return printJSON(receipt)
				}),
			},
			{
				Name:  "suspend",
				Usage: "suspend an institution (admin only)",
				Flags: []cli.Flag{flagAddress},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					addr, err := interfaces.ParseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					receipt, err := c.reg.SuspendInstitution(cCtx.Context, addr)
					if err != nil {
						return err
					}
					return printJSON(receipt)
				}),
			},
			{
				Name:  "institution",
				Usage: "show an institution and its derived state",
				Flags: []cli.Flag{flagAddress},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					addr, err := interfaces.ParseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					state, err := c.reg.InstitutionState(cCtx.Context, addr)
					if err != nil {
						return err
					}
					out := map[string]any{"address": addr, "state": state}
					if state != interfaces.InstitutionUnregistered {
						details, err := c.reg.GetInstitutionDetails(cCtx.Context, addr)
						if err != nil {
							return err
						}
						out["details"] = details
					}
					return printJSON(out)
				}),
			},
			{
				Name:  "institutions",
				Usage: "list institutions discovered from registration events",
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					institutionAddr, err := c.cfg.InstitutionRegistryAddress()
					if err != nil {
						return err
					}
					dir := registry.NewEventScanDirectory(c.eth, c.reg, institutionAddr, c.cfg.ScanStartBlock, c.cfg.ScanChunkSize, c.log)
					entries, err := dir.ListInstitutions(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(entries)
				}),
			},
			{
				Name:  "issue",
				Usage: "pin a transcript, record it on-chain and store its metadata",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "transcript document"},
					&cli.StringFlag{Name: "student", Required: true, Usage: "student wallet address"},
					&cli.StringFlag{Name: "degree", Required: true, Usage: "degree type name or number, e.g. BACHELOR"},
					&cli.Uint64Flag{Name: "year", Required: true, Usage: "graduation year"},
					&cli.StringFlag{Name: "student-id", Usage: "institution student ID, generated when empty"},
				},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					return c.Issue(cCtx)
				}),
			},
			{
				Name:  "verify-cid",
				Usage: "look up a transcript by CID",
				Flags: []cli.Flag{flagCID},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					record, err := c.reg.VerifyTranscript(cCtx.Context, cCtx.String(flagCID.Name))
					if err != nil {
						return err
					}
					return printJSON(record)
				}),
			},
			{
				Name:  "revoke",
				Usage: "invalidate a transcript on-chain (issuer only)",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "id", Required: true, Usage: "on-chain transcript ID"},
				},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					receipt, err := c.reg.InvalidateTranscript(cCtx.Context, cCtx.Uint64("id"))
					if err != nil {
						return err
					}
					return printJSON(receipt)
				}),
			},
			{
				Name:  "student-transcripts",
				Usage: "list the transcripts recorded for a student",
				Flags: []cli.Flag{flagAddress},
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					addr, err := interfaces.ParseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					records, err := c.reg.GetStudentTranscripts(cCtx.Context, addr)
					if err != nil {
						return err
					}
					return printJSON(records)
				}),
			},
			{
				Name:  "stats",
				Usage: "show registry counters",
				Action: withClient(func(cCtx *cli.Context, c *Client) error {
					stats, err := c.reg.InstitutionStats(cCtx.Context)
					if err != nil {
						return err
					}
					count, err := c.reg.TranscriptCount(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"institutions": stats, "transcripts": count})
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	cfg *config.Config
	reg *registry.OnchainRegistryClient
	eth *ethclient.Client
	log *slog.Logger
}

func withClient(fn func(cCtx *cli.Context, c *Client) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		cfg, err := flags.LoadConfig(cCtx)
		if err != nil {
			return err
		}
		reg, eth, err := flags.OpenRegistry(cCtx.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer eth.Close()
		return fn(cCtx, &Client{cfg: cfg, reg: reg, eth: eth, log: logger})
	}
}

var errNoSigner = errors.New("issuing requires a signer key (TRV_SIGNER_KEY)")

func (c *Client) Issue(cCtx *cli.Context) error {
	signer, ok := c.reg.Signer()
	if !ok {
		return errNoSigner
	}

	student, err := interfaces.ParseAddress(cCtx.String("student"))
	if err != nil {
		return err
	}
	degree, err := interfaces.ParseDegreeType(cCtx.String("degree"))
	if err != nil {
		return err
	}

	pinner, err := storage.NewPinnerFactory(c.log).PinnerFor(c.cfg.PinningURI, c.cfg.PinnerOptions())
	if err != nil {
		return err
	}
	store, err := metadata.Open(c.cfg.MetadataDialect, c.cfg.MetadataDSN, c.log)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(cCtx.String("file"))
	if err != nil {
		return fmt.Errorf("could not open transcript: %w", err)
	}
	defer f.Close()

	res, err := credentials.NewIssuer(c.reg, pinner, store, signer, c.log).Issue(cCtx.Context, credentials.IssueRequest{
		Document:       f,
		FileName:       f.Name(),
		StudentID:      cCtx.String("student-id"),
		StudentAddress: student,
		DegreeType:     degree,
		GraduationYear: cCtx.Uint64("year"),
	})
	if res != nil {
		if printErr := printJSON(res); printErr != nil {
			return printErr
		}
	}
	return err
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
