package agents

import (
	"encoding/json"
	"fmt"
)

// ContractInfo is the decoded shape of the contractInfo agent's payload.
// Pointers distinguish "absent in the document" (null) from zero values.
type ContractInfo struct {
	ProjectName       *string  `json:"projectName"`
	GeneralContractor *string  `json:"generalContractor"`
	ContractValue     *float64 `json:"contractValue"`
	StartDate         *string  `json:"startDate"`
	CompletionDate    *string  `json:"completionDate"`
	ContractNumber    *string  `json:"contractNumber"`
}

// DecodeContractInfo is the typed accessor for the contractInfo agent's
// stored payload; consumers use it instead of casting raw JSON.
func DecodeContractInfo(raw []byte) (*ContractInfo, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty contractInfo payload")
	}
	var info ContractInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode contractInfo: %w", err)
	}
	return &info, nil
}
