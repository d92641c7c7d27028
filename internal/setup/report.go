package setup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
)

type StepResult struct {
	Index int
	Name  string
	// TxHash is zero for read-only and skipped steps.
	TxHash common.Hash
	// BlockNumber is zero when the transaction was not awaited.
	BlockNumber uint64
	GasUsed     uint64
	Duration    time.Duration
	Skipped     bool
}

func (r StepResult) status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.TxHash != (common.Hash{}) && r.BlockNumber == 0:
		return "submitted"
	default:
		return "done"
	}
}

type stepResultJSON struct {
	Index       int         `json:"index"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	TxHash      common.Hash `json:"txHash,omitzero"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	GasUsed     uint64      `json:"gasUsed,omitempty"`
	Duration    string      `json:"duration"`
}

func (r StepResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepResultJSON{
		Index:       r.Index,
		Name:        r.Name,
		Status:      r.status(),
		TxHash:      r.TxHash,
		BlockNumber: r.BlockNumber,
		GasUsed:     r.GasUsed,
		Duration:    r.Duration.String(),
	})
}

// Report is the outcome of a run. On failure it holds the steps that completed.
type Report struct {
	Network    string         `json:"network"`
	ChainID    uint64         `json:"chainId"`
	Resolver   common.Address `json:"resolver"`
	Worker     common.Address `json:"worker"`
	ShareToken common.Address `json:"shareToken"`
	Farm       common.Address `json:"farm"`
	Steps      []StepResult   `json:"steps"`
}

func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Network: %s (chain id %d)\n", r.Network, r.ChainID)
	fmt.Fprintln(w, "Resolver:", r.Resolver.Hex())
	fmt.Fprintln(w, "Worker:", r.Worker.Hex())
	fmt.Fprintln(w, "Share token:", addressOrDash(r.ShareToken))
	fmt.Fprintln(w, "Farm:", addressOrDash(r.Farm))

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"#", "Step", "Status", "Tx", "Block", "Gas Used", "Duration"})

	for _, s := range r.Steps {
		tx, block, gas := "-", "-", "-"
		if s.TxHash != (common.Hash{}) {
			tx = s.TxHash.Hex()
		}
		if s.BlockNumber != 0 {
			block = strconv.FormatUint(s.BlockNumber, 10)
			gas = strconv.FormatUint(s.GasUsed, 10)
		}
		table.Append([]string{
			strconv.Itoa(s.Index),
			s.Name,
			s.status(),
			tx,
			block,
			gas,
			s.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

func addressOrDash(addr common.Address) string {
	if addr == (common.Address{}) {
		return "-"
	}
	return addr.Hex()
}
