// Package forms is the engine behind a configurable EMR form builder.
//
// A form is an ordered list of field configurations. The engine turns that
// list into validation rules, decides which fields are visible for a set of
// answers, checks the definition for structural problems and converts it to
// and from a FHIR R4 Questionnaire.
//
// # Quick Start
//
//	engine := forms.NewEngine(
//	    forms.WithLogger(logger.NewConsole(os.Stderr, logger.LevelInfo)),
//	    forms.WithExtensionBase("https://example.org/fhir/StructureDefinition/forms", "v1"),
//	)
//
//	session := engine.NewSession(form)
//	view, err := session.Dispatch(forms.SetAnswer{LinkID: "smoker", Value: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for linkID, msg := range view.ValidationErrors {
//	    fmt.Println(linkID, msg)
//	}
//
//	q, err := session.Save()
//
// # Recomputation
//
// Every intent handled by a Session rebuilds the schema and the visible set
// from scratch. Answers of fields that become hidden are dropped. The work
// is synchronous and sized for forms of tens of fields.
//
// # Batch Validation
//
// ValidateBatch checks many answer sets against one form. The schema is
// generated once and the answer sets are spread over WithWorkers goroutines.
//
// # Packages
//
//   - pkg/field: the field and form model
//   - pkg/rules: named validators (personal ID, email, phone, URL, dates)
//   - pkg/schema: per-field validation rules generated from the model
//   - pkg/visibility: conditional display logic
//   - pkg/questionnaire: FHIR Questionnaire conversion and extension URIs
//   - pkg/builder: editing state with undo/redo and lint diagnostics
//   - worker: ordered batch execution on a bounded goroutine pool
//   - internal/server, cmd/formctl: HTTP facade and CLI
//
// Engine is safe for concurrent use; Session is not.
package forms
