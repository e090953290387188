package models

// DriftResult 单条规则的校验结果
// @Description Outcome of evaluating one config rule
type DriftResult struct {
	Rule       string `json:"rule" example:"backend-url"`
	Path       string `json:"path" example:"/etc/aistack/config.json"`
	WasDrifted bool   `json:"wasDrifted" description:"文件内容偏离期望状态"`
	Fixed      bool   `json:"fixed" description:"修复后复核通过"`
	Unfixable  bool   `json:"unfixable" description:"修复后复核仍失败，需人工介入"`
	Detail     string `json:"detail,omitempty"`
}

// ValidateResponse 校验API响应
type ValidateResponse struct {
	Repaired  bool          `json:"repaired" description:"本次校验是否启用修复"`
	Drifted   int           `json:"drifted"`
	Fixed     int           `json:"fixed"`
	Unfixable int           `json:"unfixable"`
	Results   []DriftResult `json:"results"`
}
