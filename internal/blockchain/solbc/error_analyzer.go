package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError analyzes a jsonrpc.RPCError and extracts detailed information
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		result["simulation_failed"] = true
	}

	logs := ProgramLogs(err)
	if len(logs) > 0 {
		result["logs"] = logs
	}
	for _, logStr := range logs {
		if strings.Contains(logStr, "AnchorError occurred") {
			anchorErr := ea.parseAnchorErrorLog(logStr)
			result["anchor_error"] = anchorErr

			ea.logger.Warn("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
	}

	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if e, ok := dataMap["err"]; ok && e != nil {
			result["instruction_error"] = e
		}
	}

	return result
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.Split(logStr, "Error Number:"); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		if len(numParts) > 0 {
			fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
		}
	}

	if parts := strings.Split(logStr, "Error Code:"); len(parts) > 1 {
		nameParts := strings.Split(parts[1], ".")
		if len(nameParts) > 0 {
			result.Name = strings.TrimSpace(nameParts[0])
		}
	}

	if parts := strings.Split(logStr, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "."))
	}

	return result
}

// FormatErrorAnalysis formats the error analysis for logging or display
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis map[string]interface{}) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}

// IsAccountAlreadyInUse reports whether the failure is the system program refusing
// to create an account that already exists.
func (ea *ErrorAnalyzer) IsAccountAlreadyInUse(err error) bool {
	if err == nil {
		return false
	}
	for _, l := range ProgramLogs(err) {
		if strings.Contains(l, "already in use") {
			return true
		}
	}
	return strings.Contains(err.Error(), "already in use")
}

// ProgramError returns the program error code and name found in the simulation logs.
// Anchor logs carry both; a bare "custom program error: 0x.." only the code.
func (ea *ErrorAnalyzer) ProgramError(err error) (int, string, bool) {
	logs := ProgramLogs(err)
	for _, l := range logs {
		if strings.Contains(l, "AnchorError occurred") {
			anchorErr := ea.parseAnchorErrorLog(l)
			return anchorErr.Code, anchorErr.Name, true
		}
	}
	for _, l := range logs {
		if idx := strings.Index(l, "custom program error: 0x"); idx >= 0 {
			code, perr := strconv.ParseInt(strings.TrimSpace(l[idx+len("custom program error: 0x"):]), 16, 64)
			if perr == nil {
				return int(code), "", true
			}
		}
	}
	return 0, "", false
}

// ProgramLogs extracts simulation logs carried by a jsonrpc.RPCError, if any.
func ProgramLogs(err error) []string {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		return nil
	}
	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := dataMap["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
