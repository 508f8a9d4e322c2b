package frontend

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pimsim/pimsim/pim"
)

// LoadedTrace is the parsed form of an upstream trace file (§4.5 step 1):
// an ordered operation list, where a kernel block (conv2d/gemm...end) is
// represented by a synthetic OpKernel operation whose Addr.Bank carries
// the index into Kernels.
type LoadedTrace struct {
	Ops     []pim.Operation
	Kernels []pim.KernelDescriptor
}

var opcodeHeads = map[string]pim.Opcode{
	"R":  pim.OpRead,
	"W":  pim.OpWrite,
	"C":  pim.OpCompute,
	"SR": pim.OpSubarrayRead,
	"SW": pim.OpSubarrayWrite,
	"BR": pim.OpBankRead,
	"BW": pim.OpBankWrite,
}

// LoadTrace parses path into a LoadedTrace (§4.5 step 1, §6). Malformed
// lines — an unrecognized opcode, a missing address vector, a
// mismatched conv2d/gemm/end nesting — are a fatal ConfigurationError;
// unlike the static weight loader, this parser never skips silently.
func LoadTrace(path string) (*LoadedTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pim.ConfigurationError{Msg: fmt.Sprintf("open trace %q", path), Err: err}
	}
	defer f.Close()

	lt := &LoadedTrace{}
	var inKernel bool
	var cur pim.KernelDescriptor

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		head := fields[0]

		switch head {
		case "conv2d", "gemm":
			if inKernel {
				return nil, configErr(path, lineNo, "nested kernel block (missing 'end')")
			}
			inKernel = true
			cur = pim.KernelDescriptor{Opcode: head}
			continue
		case "end":
			if !inKernel {
				return nil, configErr(path, lineNo, "'end' with no open kernel block")
			}
			lt.Kernels = append(lt.Kernels, cur)
			idx := len(lt.Kernels) - 1
			lt.Ops = append(lt.Ops, pim.Operation{
				Opcode: pim.OpKernel,
				Addr:   pim.AddressVector{Bank: idx},
			})
			inKernel = false
			continue
		}

		if inKernel {
			cur.Body = append(cur.Body, fields)
			continue
		}

		opcode, ok := opcodeHeads[head]
		if !ok {
			return nil, configErr(path, lineNo, fmt.Sprintf("unrecognized opcode %q", head))
		}
		if len(fields) < 2 {
			return nil, configErr(path, lineNo, "missing address vector")
		}
		addr, ok := pim.ParseAddressVector(fields[1])
		if !ok {
			return nil, configErr(path, lineNo, fmt.Sprintf("malformed address vector %q", fields[1]))
		}
		lt.Ops = append(lt.Ops, pim.Operation{Opcode: opcode, Addr: addr, TokenID: -1})
	}
	if inKernel {
		return nil, configErr(path, lineNo, "trace ends with an open kernel block (missing 'end')")
	}
	if err := scanner.Err(); err != nil {
		return nil, &pim.ConfigurationError{Msg: fmt.Sprintf("reading trace %q", path), Err: err}
	}
	return lt, nil
}

func configErr(path string, line int, msg string) error {
	return &pim.ConfigurationError{Msg: fmt.Sprintf("%s:%d: %s", path, line, msg)}
}
