package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/ruteri/transcript-registry-backend/bindings/registry"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

const (
	// DefaultScanChunkSize keeps eth_getLogs ranges under common RPC provider limits.
	DefaultScanChunkSize uint64 = 5000

	DefaultHydrationConcurrency = 8
)

// institutionRegisteredTopic is the topic0 of InstitutionRegistered(address indexed, uint256).
var institutionRegisteredTopic = func() common.Hash {
	parsed, err := abi.JSON(strings.NewReader(registry.InstitutionRegistryMetaData.ABI))
	if err != nil {
		panic("registry: invalid institution registry ABI: " + err.Error())
	}
	return parsed.Events["InstitutionRegistered"].ID
}()

// LogSource is the subset of an Ethereum client used for event scanning.
// *ethclient.Client satisfies it.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// DetailsSource hydrates a discovered institution address.
type DetailsSource interface {
	GetInstitutionDetails(ctx context.Context, addr common.Address) (*interfaces.InstitutionRecord, error)
}

// EventScanDirectory discovers institutions by scanning InstitutionRegistered logs.
// Results are best-effort: failed chunks are skipped and failed hydrations yield address-only entries.
type EventScanDirectory struct {
	logs         LogSource
	details      DetailsSource
	registryAddr common.Address
	startBlock   uint64
	chunkSize    uint64
	concurrency  int
	log          *slog.Logger
}

// NewEventScanDirectory creates a directory scanning the institution registry at registryAddr
// from startBlock. A zero chunkSize selects DefaultScanChunkSize.
func NewEventScanDirectory(logs LogSource, details DetailsSource, registryAddr common.Address, startBlock, chunkSize uint64, log *slog.Logger) *EventScanDirectory {
	if chunkSize == 0 {
		chunkSize = DefaultScanChunkSize
	}
	return &EventScanDirectory{
		logs:         logs,
		details:      details,
		registryAddr: registryAddr,
		startBlock:   startBlock,
		chunkSize:    chunkSize,
		concurrency:  DefaultHydrationConcurrency,
		log:          log,
	}
}

// ListInstitutions scans from the configured start block to the chain head and hydrates every address found.
func (d *EventScanDirectory) ListInstitutions(ctx context.Context) ([]interfaces.DirectoryEntry, error) {
	head, err := d.logs.BlockNumber(ctx)
	if err != nil {
		return nil, ClassifyError("eth_blockNumber", err)
	}

	scan := d.scan(ctx, d.startBlock, head)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.hydrate(ctx, scan.addresses)
}

// scanResult is the outcome of scanning a block range.
type scanResult struct {
	// addresses in first-seen order, deduplicated.
	addresses []common.Address
	// resumeFrom is the first block not covered by the successful prefix of chunks.
	resumeFrom uint64
	// complete reports that no chunk failed.
	complete bool
}

func (d *EventScanDirectory) scan(ctx context.Context, from, to uint64) scanResult {
	res := scanResult{resumeFrom: from, complete: true}
	if from > to {
		return res
	}

	seen := make(map[common.Address]struct{})
	for chunkStart := from; chunkStart <= to; {
		if ctx.Err() != nil {
			res.complete = false
			return res
		}

		chunkEnd := chunkStart + d.chunkSize - 1
		if chunkEnd > to || chunkEnd < chunkStart {
			chunkEnd = to
		}

		logs, err := d.logs.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(chunkStart),
			ToBlock:   new(big.Int).SetUint64(chunkEnd),
			Addresses: []common.Address{d.registryAddr},
			Topics:    [][]common.Hash{{institutionRegisteredTopic}},
		})
		if err != nil {
			d.log.Warn("getLogs failed for range", "from", chunkStart, "to", chunkEnd, "err", err)
			res.complete = false
		} else {
			if res.complete {
				res.resumeFrom = chunkEnd + 1
			}
			for _, l := range logs {
				addr, ok := registeredAddress(l)
				if !ok {
					continue
				}
				if _, dup := seen[addr]; dup {
					continue
				}
				seen[addr] = struct{}{}
				res.addresses = append(res.addresses, addr)
			}
		}

		if chunkEnd == to {
			break
		}
		chunkStart = chunkEnd + 1
	}
	return res
}

func registeredAddress(l types.Log) (common.Address, bool) {
	if l.Removed || len(l.Topics) < 2 || l.Topics[0] != institutionRegisteredTopic {
		return common.Address{}, false
	}
	return common.BytesToAddress(l.Topics[1].Bytes()), true
}

// hydrate fetches details for every address concurrently. Each address owns its result slot.
func (d *EventScanDirectory) hydrate(ctx context.Context, addrs []common.Address) ([]interfaces.DirectoryEntry, error) {
	entries := make([]interfaces.DirectoryEntry, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			entries[i].Address = addr
			details, err := d.details.GetInstitutionDetails(gctx, addr)
			if err != nil {
				d.log.Warn("failed to get details for institution", "address", interfaces.NormalizeAddress(addr), "err", err)
				return nil
			}
			entries[i].Details = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hydrating institutions: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
