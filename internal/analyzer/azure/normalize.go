package azure

import (
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
)

type analyzeResult struct {
	ModelID       string          `json:"modelId"`
	Content       string          `json:"content"`
	Documents     []azureDocument `json:"documents,omitempty"`
	KeyValuePairs []azureKeyValue `json:"keyValuePairs,omitempty"`
}

type azureDocument struct {
	DocType    string                `json:"docType"`
	Confidence float64               `json:"confidence"`
	Fields     map[string]azureField `json:"fields"`
}

type azureField struct {
	Type          string                `json:"type"`
	ValueString   string                `json:"valueString,omitempty"`
	ValueNumber   *float64              `json:"valueNumber,omitempty"`
	ValueDate     string                `json:"valueDate,omitempty"`
	ValueCurrency *azureCurrency        `json:"valueCurrency,omitempty"`
	ValueObject   map[string]azureField `json:"valueObject,omitempty"`
	Content       string                `json:"content,omitempty"`
	Confidence    float64               `json:"confidence,omitempty"`
}

type azureCurrency struct {
	Amount float64 `json:"amount"`
	Symbol string  `json:"currencySymbol,omitempty"`
}

type azureKeyValue struct {
	Key        *azureKVContent `json:"key,omitempty"`
	Value      *azureKVContent `json:"value,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}

type azureKVContent struct {
	Content string `json:"content"`
}

// fieldAliases maps each model's field paths (nested objects flattened
// with dots) onto the canonical names the validator consumes.
var fieldAliases = map[string]map[string]string{
	analyzer.ModelW2: {
		"Employee.Name":                 analyzer.FieldEmployeeName,
		"Employer.Name":                 analyzer.FieldEmployerName,
		"TaxYear":                       analyzer.FieldTaxYear,
		"WagesTipsAndOtherCompensation": analyzer.FieldBox1Wages,
		"SocialSecurityWages":           analyzer.FieldBox3SSWages,
		"MedicareWagesAndTips":          analyzer.FieldBox5MediWages,
	},
	analyzer.ModelPaystub: {
		"EmployeeName":          analyzer.FieldEmployeeName,
		"EmployerName":          analyzer.FieldEmployerName,
		"PayPeriodStartDate":    analyzer.FieldPayPeriodStart,
		"PayPeriodEndDate":      analyzer.FieldPayPeriodEnd,
		"PayDate":               analyzer.FieldPayDate,
		"CurrentPeriodGrossPay": analyzer.FieldGrossPay,
	},
	analyzer.ModelSSA1099: {
		"Recipient.Name": analyzer.FieldBeneficiaryName,
		"TaxYear":        analyzer.FieldTaxYear,
		"Box5":           analyzer.FieldBenefitAmount,
	},
}

func normalizeResult(modelID string, res *analyzeResult) analyzer.Result {
	out := analyzer.Result{
		ModelID: modelID,
		Content: res.Content,
		Fields:  analyzer.FieldMap{},
	}

	if doc := bestDocument(res.Documents); doc != nil {
		out.MatchedType = doc.DocType
		out.DocConfidence = doc.Confidence
		aliases := fieldAliases[modelID]
		flat := map[string]azureField{}
		flattenFields("", doc.Fields, flat)
		for path, field := range flat {
			name, ok := aliases[path]
			if !ok {
				continue
			}
			out.Fields[name] = convertField(field)
		}
	}

	for _, kv := range res.KeyValuePairs {
		if kv.Key == nil || kv.Value == nil {
			continue
		}
		key := strings.TrimSpace(kv.Key.Content)
		value := strings.TrimSpace(kv.Value.Content)
		if key == "" || value == "" {
			continue
		}
		out.KeyValues = append(out.KeyValues, analyzer.KeyValue{
			Key:        key,
			Value:      value,
			Confidence: kv.Confidence,
		})
	}

	return out
}

func bestDocument(docs []azureDocument) *azureDocument {
	var best *azureDocument
	for i := range docs {
		if best == nil || docs[i].Confidence > best.Confidence {
			best = &docs[i]
		}
	}
	return best
}

func flattenFields(prefix string, fields map[string]azureField, out map[string]azureField) {
	for name, field := range fields {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if len(field.ValueObject) > 0 {
			flattenFields(path, field.ValueObject, out)
			continue
		}
		out[path] = field
	}
}

func convertField(f azureField) analyzer.Field {
	out := analyzer.Field{
		Text:       strings.TrimSpace(f.ValueString),
		Confidence: f.Confidence,
	}
	if out.Text == "" {
		out.Text = strings.TrimSpace(f.Content)
	}
	if f.ValueNumber != nil {
		n := *f.ValueNumber
		out.Number = &n
	} else if f.ValueCurrency != nil {
		n := f.ValueCurrency.Amount
		out.Number = &n
	}
	if f.ValueDate != "" {
		if parsed, err := time.Parse("2006-01-02", f.ValueDate); err == nil {
			out.Date = &parsed
		}
	}
	return out
}
