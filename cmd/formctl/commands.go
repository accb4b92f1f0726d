package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gofhir/forms/internal/server"
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/questionnaire"
	"github.com/gofhir/forms/pkg/visibility"
)

func toQuestionnaireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "to-questionnaire [form.json]",
		Short: "Convert a form definition to a FHIR Questionnaire",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOrStdin(args)
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			form, err := field.ParseForm(data)
			if err != nil {
				return fmt.Errorf("parse form %s: %w", inputName(path), err)
			}

			q, err := a.engine.ToQuestionnaire(form)
			if err != nil {
				return err
			}
			out, err := questionnaire.Marshal(q)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func fromQuestionnaireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "from-questionnaire [questionnaire.json]",
		Short: "Convert a FHIR Questionnaire to a form definition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOrStdin(args)
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			q, err := questionnaire.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("%s: %w", inputName(path), err)
			}

			form, report, err := a.engine.FromQuestionnaire(q)
			if err != nil {
				return err
			}
			for _, iss := range report.Issues {
				a.log.Warn("%s: %s", inputName(path), iss.Diagnostics)
			}
			return writeValue(cmd.OutOrStdout(), form)
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	var answersPaths []string
	cmd := &cobra.Command{
		Use:   "validate [form.json] --answers answers.json...",
		Short: "Validate answers or QuestionnaireResponses against a form",
		Long: `Validate answers against a form. The form may be a form definition or a
Questionnaire. Each answers file may be a JSON object keyed by linkId or a
QuestionnaireResponse; several files are validated concurrently. Fields
hidden by their conditions are not validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formPath := argOrStdin(args)
			stdinUsers := 0
			if isStdin(formPath) {
				stdinUsers++
			}
			for _, p := range answersPaths {
				if isStdin(p) {
					stdinUsers++
				}
			}
			if stdinUsers > 1 {
				return fmt.Errorf("only one of the form and the answers can come from stdin")
			}

			form, conv, err := a.loadForm(cmd, formPath)
			if err != nil {
				return err
			}
			answerSets := make([]map[string]any, len(answersPaths))
			for i, p := range answersPaths {
				if answerSets[i], err = loadAnswers(cmd, p); err != nil {
					return err
				}
			}

			reports, err := a.engine.ValidateBatch(cmd.Context(), form, answerSets)
			if err != nil {
				return err
			}
			invalid := false
			for i, report := range reports {
				res := report.Issues
				res.Merge(conv)
				if err := writeResult(cmd.OutOrStdout(), a.output, inputName(answersPaths[i]), res); err != nil {
					return err
				}
				invalid = invalid || !report.Valid()
			}
			if invalid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&answersPaths, "answers", nil, "answers or QuestionnaireResponse file (- for stdin); repeatable")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

type visibilityOutput struct {
	Visible  []string               `json:"visible"`
	Hidden   []string               `json:"hidden"`
	Cycles   [][]string             `json:"cycles,omitempty"`
	Dangling []visibility.Reference `json:"dangling,omitempty"`
}

func visibilityCmd(a *app) *cobra.Command {
	var answersPath string
	cmd := &cobra.Command{
		Use:   "visibility [form.json] [--answers answers.json]",
		Short: "Show which fields are visible for a set of answers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formPath := argOrStdin(args)
			if answersPath == "-" && isStdin(formPath) {
				return fmt.Errorf("only one of the form and the answers can come from stdin")
			}
			form, _, err := a.loadForm(cmd, formPath)
			if err != nil {
				return err
			}
			var answers map[string]any
			if answersPath != "" {
				if answers, err = loadAnswers(cmd, answersPath); err != nil {
					return err
				}
			}

			vis := a.engine.Visibility(form.Fields, answers)
			out := visibilityOutput{
				Visible:  vis.VisibleLinkIDs(),
				Hidden:   vis.HiddenLinkIDs(),
				Cycles:   vis.Cycles(),
				Dangling: vis.Dangling(),
			}
			if out.Visible == nil {
				out.Visible = []string{}
			}
			if out.Hidden == nil {
				out.Hidden = []string{}
			}
			return writeValue(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&answersPath, "answers", "", "answers or QuestionnaireResponse file (- for stdin)")
	return cmd
}

func lintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [form.json]",
		Short: "Report structural problems of a form definition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOrStdin(args)
			form, conv, err := a.loadForm(cmd, path)
			if err != nil {
				return err
			}
			res, err := a.engine.Lint(form)
			if err != nil {
				return err
			}
			res.Merge(conv)
			if err := writeResult(cmd.OutOrStdout(), a.output, inputName(path), res); err != nil {
				return err
			}
			if res.HasErrors() {
				return errInvalid
			}
			return nil
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			srv := server.New(a.engine, a.log,
				server.WithBodyLimit(a.cfg.BodyLimit),
				server.WithShutdownTimeout(time.Duration(a.cfg.ShutdownSecs)*time.Second),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from FORMS_HTTP_ADDR)")
	return cmd
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// loadForm reads a form definition, or a Questionnaire converted to one.
// The returned result lists conversion issues, if any.
func (a *app) loadForm(cmd *cobra.Command, path string) (*field.Form, *issue.Result, error) {
	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return nil, nil, err
	}
	switch resourceType(data) {
	case questionnaire.ResourceQuestionnaire:
		q, err := questionnaire.Unmarshal(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", inputName(path), err)
		}
		return a.engine.FromQuestionnaire(q)
	case "":
		form, err := field.ParseForm(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parse form %s: %w", inputName(path), err)
		}
		return form, nil, nil
	default:
		return nil, nil, fmt.Errorf("%s: expected a form or a Questionnaire, got %s", inputName(path), resourceType(data))
	}
}

// loadAnswers reads an answer map keyed by linkId, or the answers of a
// QuestionnaireResponse.
func loadAnswers(cmd *cobra.Command, path string) (map[string]any, error) {
	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return nil, err
	}
	if resourceType(data) == questionnaire.ResourceQuestionnaireResponse {
		qr, err := questionnaire.UnmarshalResponse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inputName(path), err)
		}
		return questionnaire.AnswersFromResponse(qr), nil
	}
	var answers map[string]any
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", inputName(path), err)
	}
	return answers, nil
}

func resourceType(data []byte) string {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	_ = json.Unmarshal(data, &probe)
	return probe.ResourceType
}
