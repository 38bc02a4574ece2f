package lookup

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/util"
)

const (
	VendorSignzy  = "signzy"
	VendorDeepvue = "deepvue"
)

// Input is the officer's form as decoded from JSON.
type Input map[string]any

func (in Input) str(key string) string {
	switch v := in[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (in Input) boolean(key string) bool {
	switch v := in[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func (in Input) list(key string, def []string) []string {
	switch v := in[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return def
}

func (in Input) strOr(key, def string) string {
	if s := in.str(key); s != "" {
		return s
	}
	return def
}

// request is a validated lookup ready to send.
type request struct {
	body      any
	query     url.Values
	inputData string
	remarks   string
	subject   string
}

// Definition describes one lookup the portal can run.
type Definition struct {
	Key         string   `json:"key"`
	Category    string   `json:"category"`
	Vendor      string   `json:"vendor"`
	Source      string   `json:"source"`
	Method      string   `json:"-"`
	Path        string   `json:"-"`
	Required    []string `json:"required"`
	matchPrefix bool

	build func(Input) (*request, error)
	// result picks full_result out of the decoded body
	result func(map[string]any) any
	// summary renders result_summary on success
	summary func(*request, map[string]any) string
	// checkCode marks a body whose code is not 200 as failed
	checkCode bool
}

// Matches reports whether a catalog API name serves this lookup.
func (d Definition) Matches(apiName string) bool {
	if d.matchPrefix {
		return strings.Contains(strings.ToLower(apiName), strings.ToLower(d.Category))
	}
	return apiName == d.Category
}

func missing(fields ...string) error {
	return fmt.Errorf("%s is required", strings.Join(fields, ", "))
}

func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[p]
	}
	return cur
}

func orNA(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case string:
		if x == "" {
			return "N/A"
		}
		return x
	case bool:
		if !x {
			return "N/A"
		}
		return "true"
	default:
		return fmt.Sprint(x)
	}
}

func fromResult(m map[string]any) any {
	if r, ok := m["result"]; ok {
		return r
	}
	return m
}

func whole(m map[string]any) any { return m }

func compact(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// dropEmpty leaves out optional fields the officer did not fill in.
func dropEmpty(m map[string]any) map[string]any {
	for k, v := range m {
		switch x := v.(type) {
		case string:
			if x == "" {
				delete(m, k)
			}
		case bool:
			if !x {
				delete(m, k)
			}
		}
	}
	return m
}

var registry = []Definition{
	{
		Key: "aml-cft-ndd", Category: "AML/CFT NDD Search", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/amlcft/ndd", Required: []string{"name"},
		build: func(in Input) (*request, error) {
			name := in.str("name")
			if name == "" {
				return nil, missing("name")
			}
			return &request{
				body: map[string]any{
					"name":                name,
					"type":                in.strOr("type", "individual"),
					"category":            in.list("category", []string{"AML", "CFT", "NONCOMPLIANCE", "LENDING"}),
					"databaseList":        in.list("databaseList", []string{"All"}),
					"matchScoreThreshold": in.strOr("matchScoreThreshold", "0.50"),
					"country":             in.strOr("country", "INDIA"),
					"searchText":          in.list("searchText", []string{""}),
					"aliasArray":          in.list("aliasArray", []string{""}),
				},
				inputData: name,
				remarks:   "AML/CFT NDD Search for " + name,
				subject:   name,
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			return fmt.Sprintf("NDD results found for %s: %s", r.subject, orNA(dig(m, "result", "matchStatus")))
		},
	},
	{
		Key: "bank-account-verification", Category: "Bank Account Verification", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/bankaccountverification/bankaccountverifications",
		Required: []string{"beneficiaryAccount", "beneficiaryIFSC"},
		build: func(in Input) (*request, error) {
			acct, ifsc := in.str("beneficiaryAccount"), util.NormalizeIFSC(in.str("beneficiaryIFSC"))
			if acct == "" || ifsc == "" {
				return nil, missing("beneficiaryAccount", "beneficiaryIFSC")
			}
			body := dropEmpty(map[string]any{
				"beneficiaryAccount": acct,
				"beneficiaryIFSC":    ifsc,
				"beneficiaryMobile":  in.str("beneficiaryMobile"),
				"beneficiaryName":    in.str("beneficiaryName"),
				"nameMatchScore":     in.str("nameMatchScore"),
				"nameFuzzy":          in.boolean("nameFuzzy"),
			})
			return &request{
				body:      body,
				inputData: compact(body),
				remarks:   "Bank Account Verification for account " + acct,
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			return "Account verified: " + orNA(dig(m, "result", "active"))
		},
	},
	{
		Key: "check-dual-employment", Category: "Check Dual Employment", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/underwriting/check-dual-employment",
		Required: []string{"uan", "employerName"},
		build: func(in Input) (*request, error) {
			uan, employer := in.str("uan"), in.str("employerName")
			if uan == "" || employer == "" {
				return nil, missing("uan", "employerName")
			}
			body := map[string]any{"uan": uan, "employerName": employer}
			return &request{
				body:      body,
				inputData: compact(body),
				remarks:   "Dual Employment Check for UAN " + uan,
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			n := 0
			if rs, ok := dig(m, "result").([]any); ok {
				n = len(rs)
			}
			return fmt.Sprintf("Dual employment check result: %d records found", n)
		},
	},
	{
		Key: "digital-identity-score", Category: "Digital Identity Score", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/data-enrichment/digital-identity-score",
		Required: []string{"phone"},
		build: func(in Input) (*request, error) {
			phone := in.str("phone")
			if phone == "" {
				return nil, missing("phone")
			}
			body := dropEmpty(map[string]any{
				"phone":   phone,
				"email":   in.str("email"),
				"name":    in.str("name"),
				"pincode": in.str("pincode"),
			})
			return &request{
				body:      body,
				inputData: compact(body),
				remarks:   "Digital Identity Score for phone " + phone,
			}, nil
		},
		result: whole,
		summary: func(r *request, m map[string]any) string {
			return "Digital identity score fetched: " + orNA(m["digitalIdentityScore"])
		},
	},
	{
		Key: "domain-verification", Category: "Domain Verification", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/domainVerification", Required: []string{"webDomain"},
		build: func(in Input) (*request, error) {
			domain := in.str("webDomain")
			if domain == "" {
				return nil, missing("webDomain")
			}
			body := map[string]any{"webDomain": domain}
			return &request{
				body:      body,
				inputData: compact(body),
				remarks:   "Domain Verification for " + domain,
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			return "Domain verified: " + orNA(dig(m, "result", "name"))
		},
	},
	{
		Key: "employee-name-search", Category: "Employee Name Search", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/epfo/employee-name-search",
		Required: []string{"establishmentId", "establishmentName", "employeeName", "employmentMonth"},
		build: func(in Input) (*request, error) {
			body := map[string]any{}
			var absent []string
			for _, k := range []string{"establishmentId", "establishmentName", "employeeName", "employmentMonth"} {
				v := in.str(k)
				if v == "" {
					absent = append(absent, k)
				}
				body[k] = v
			}
			if len(absent) > 0 {
				return nil, missing(absent...)
			}
			return &request{
				body:      body,
				inputData: compact(body),
				remarks:   fmt.Sprintf("Employee Name Search for %s - %s", body["employeeName"], body["establishmentId"]),
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			if match, _ := dig(m, "result", "match").(bool); match {
				return "Employee name search result: Match found"
			}
			return "Employee name search result: No match"
		},
	},
	{
		Key: "fssai-verification", Category: "FSSAI Verification Search", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/fssai/verification", Required: []string{"licenseNumber"},
		build: func(in Input) (*request, error) {
			lic := util.NormalizeFSSAI(in.str("licenseNumber"))
			if !util.ValidFSSAI(lic) {
				return nil, fmt.Errorf("licenseNumber must be 14 digits")
			}
			categorized := true
			if _, ok := in["getCategorizedProductList"]; ok {
				categorized = in.boolean("getCategorizedProductList")
			}
			return &request{
				body:      map[string]any{"licenseNumber": lic, "getCategorizedProductList": categorized},
				inputData: lic,
				remarks:   "FSSAI Verification for license " + lic,
				subject:   lic,
			}, nil
		},
		result: fromResult,
		summary: func(r *request, m map[string]any) string {
			return fmt.Sprintf("FSSAI verification result for license %s: %s", r.subject, orNA(dig(m, "result", "status")))
		},
	},
	{
		Key: "pan-to-tan", Category: "PAN to TAN Search", Vendor: VendorSignzy, Source: "Signzy API",
		Method: http.MethodPost, Path: "/api/v3/panToTan", Required: []string{"panNumber"}, matchPrefix: true,
		build: func(in Input) (*request, error) {
			pan := util.NormalizePAN(in.str("panNumber"))
			if !util.ValidPAN(pan) {
				return nil, fmt.Errorf("panNumber must look like ABCDE1234F")
			}
			return &request{
				body:      map[string]any{"panNumber": pan},
				inputData: pan,
				remarks:   "PAN to TAN Search for PAN " + pan,
			}, nil
		},
		result: func(m map[string]any) any {
			if d := dig(m, "result", "data"); d != nil {
				return d
			}
			return m
		},
		summary: func(r *request, m map[string]any) string {
			var tan any
			if rows, ok := dig(m, "result", "data").([]any); ok && len(rows) > 0 {
				if row, ok := rows[0].(map[string]any); ok {
					tan = row["tanNumber"]
				}
			}
			return "TAN details found for PAN: " + orNA(tan)
		},
	},
	{
		Key: "mobile-to-pan", Category: "Mobile to Pan", Vendor: VendorDeepvue, Source: "Deepvue",
		Method: http.MethodGet, Path: "/v1/mobile-intelligence/mobile-to-pan", Required: []string{"mobile_number"},
		matchPrefix: true, checkCode: true,
		build: func(in Input) (*request, error) {
			mobile := in.str("mobile_number")
			if !util.TenDigits(mobile) {
				return nil, fmt.Errorf("mobile_number must be 10 digits")
			}
			return &request{
				query:     url.Values{"mobile_number": {mobile}},
				inputData: "Mobile Number: " + mobile,
				remarks:   "Mobile to Pan for " + mobile,
			}, nil
		},
		result: whole,
		summary: func(r *request, m map[string]any) string {
			return "PAN fetched: " + messageOr(m, "Success")
		},
	},
	{
		Key: "credit-report", Category: "Credit Report V2", Vendor: VendorDeepvue, Source: "Deepvue",
		Method: http.MethodGet, Path: "/v2/financial-services/credit-bureau/credit-report",
		Required:    []string{"full_name", "id_number", "mobile_number", "gender", "consent", "purpose"},
		matchPrefix: true, checkCode: true,
		build: func(in Input) (*request, error) {
			name, id, mobile := in.str("full_name"), in.str("id_number"), in.str("mobile_number")
			gender, consent := strings.ToLower(in.str("gender")), in.strOr("consent", "Y")
			purpose := in.strOr("purpose", "For Loan Eligibility Check")
			if name == "" || id == "" || mobile == "" || gender == "" {
				return nil, missing("full_name", "id_number", "mobile_number", "gender")
			}
			if !util.TenDigits(mobile) {
				return nil, fmt.Errorf("mobile_number must be 10 digits")
			}
			if gender != "male" && gender != "female" {
				return nil, fmt.Errorf("gender must be male or female")
			}
			if consent != "Y" {
				return nil, fmt.Errorf("consent must be Y")
			}
			return &request{
				query: url.Values{
					"full_name":     {name},
					"id_number":     {id},
					"mobile_number": {mobile},
					"gender":        {gender},
					"consent":       {consent},
					"purpose":       {purpose},
					"generate_pdf":  {fmt.Sprint(in.boolean("generate_pdf"))},
				},
				inputData: fmt.Sprintf("Name: %s, ID: %s, Mobile: %s", name, id, mobile),
				remarks:   "Credit Report for " + mobile,
			}, nil
		},
		result: whole,
		summary: func(r *request, m map[string]any) string {
			return "Credit report fetched: " + messageOr(m, "Success")
		},
	},
}

func messageOr(m map[string]any, def string) string {
	if s, ok := m["message"].(string); ok && s != "" {
		return s
	}
	return def
}

var byKey = func() map[string]Definition {
	m := make(map[string]Definition, len(registry))
	for _, d := range registry {
		m[d.Key] = d
	}
	return m
}()

// Lookup returns the definition registered under key.
func Lookup(key string) (Definition, bool) {
	d, ok := byKey[key]
	return d, ok
}

// Definitions lists every lookup in display order.
func Definitions() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}
