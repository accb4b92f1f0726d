package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/gofhir/forms"
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/questionnaire"
	"github.com/gofhir/forms/pkg/visibility"
)

// MIMEFHIRJSON is the content type of FHIR resources.
const MIMEFHIRJSON = "application/fhir+json"

var (
	errEmptyBody     = errors.New("request body is empty")
	errMalformedBody = errors.New("request body is not valid JSON")
)

// formRequest carries a form, or a Questionnaire holding one, plus the
// answers to evaluate. A QuestionnaireResponse may replace answers.
type formRequest struct {
	Form          *field.Form     `json:"form"`
	Questionnaire json.RawMessage `json:"questionnaire"`
	Answers       map[string]any  `json:"answers"`
	Response      json.RawMessage `json:"response"`
}

type batchRequest struct {
	formRequest
	AnswerSets []map[string]any `json:"answerSets"`
}

type batchResponse struct {
	Results []json.RawMessage `json:"results"`
	Valid   int               `json:"valid"`
	Invalid int               `json:"invalid"`
}

type toFormResponse struct {
	Form   *field.Form     `json:"form"`
	Issues json.RawMessage `json:"issues"`
}

type visibilityResponse struct {
	Visible  []string               `json:"visible"`
	Hidden   []string               `json:"hidden"`
	Cycles   [][]string             `json:"cycles,omitempty"`
	Dangling []visibility.Reference `json:"dangling,omitempty"`
	Answers  map[string]any         `json:"answers"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	FHIRVersion string `json:"fhirVersion"`
}

func (s *Server) health(c echo.Context) error {
	return writeJSON(c, http.StatusOK, healthResponse{
		Status:      "ok",
		Version:     forms.Version,
		FHIRVersion: s.engine.Options().FHIRVersion.String(),
	})
}

func (s *Server) metrics(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.engine.Stats())
}

func (s *Server) toQuestionnaire(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var form field.Form
	if err := json.Unmarshal(body, &form); err != nil {
		return badRequest(fmt.Errorf("invalid form: %w", err))
	}

	q, err := s.engine.ToQuestionnaire(&form)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	data, err := questionnaire.Marshal(q)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, MIMEFHIRJSON, data)
}

func (s *Server) toForm(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	q, err := questionnaire.Unmarshal(body)
	if err != nil {
		return badRequest(err)
	}

	form, report, err := s.engine.FromQuestionnaire(q)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	outcome, err := questionnaire.MarshalOutcome(report.ToOperationOutcome())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toFormResponse{Form: form, Issues: outcome})
}

func (s *Server) validate(c echo.Context) error {
	req, err := decodeFormRequest(c)
	if err != nil {
		return err
	}
	form, conv, err := s.resolveForm(req)
	if err != nil {
		return err
	}
	answers, err := resolveAnswers(req)
	if err != nil {
		return err
	}

	report, err := s.engine.Validate(form, answers)
	if err != nil {
		return badRequest(err)
	}
	res := report.Issues
	res.Merge(conv)
	return writeOutcome(c, http.StatusOK, res)
}

func (s *Server) validateBatch(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var req batchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Errorf("invalid request: %w", err))
	}
	if len(req.AnswerSets) == 0 {
		return badRequest(errors.New("answerSets is required"))
	}
	form, conv, err := s.resolveForm(&req.formRequest)
	if err != nil {
		return err
	}

	reports, err := s.engine.ValidateBatch(c.Request().Context(), form, req.AnswerSets)
	if err != nil {
		return err
	}
	resp := batchResponse{Results: make([]json.RawMessage, len(reports))}
	for i, report := range reports {
		if report.Valid() {
			resp.Valid++
		} else {
			resp.Invalid++
		}
		res := report.Issues
		res.Merge(conv)
		outcome, err := questionnaire.MarshalOutcome(res.ToOperationOutcome())
		if err != nil {
			return err
		}
		resp.Results[i] = outcome
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) visibility(c echo.Context) error {
	req, err := decodeFormRequest(c)
	if err != nil {
		return err
	}
	form, _, err := s.resolveForm(req)
	if err != nil {
		return err
	}
	answers, err := resolveAnswers(req)
	if err != nil {
		return err
	}

	vis := s.engine.Visibility(form.Fields, answers)
	return writeJSON(c, http.StatusOK, visibilityResponse{
		Visible:  nonNil(vis.VisibleLinkIDs()),
		Hidden:   nonNil(vis.HiddenLinkIDs()),
		Cycles:   vis.Cycles(),
		Dangling: vis.Dangling(),
		Answers:  visibility.ClearHidden(answers, vis),
	})
}

func (s *Server) lint(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var form field.Form
	if err := json.Unmarshal(body, &form); err != nil {
		return badRequest(fmt.Errorf("invalid form: %w", err))
	}

	res, err := s.engine.Lint(&form)
	if err != nil {
		return badRequest(err)
	}
	return writeOutcome(c, http.StatusOK, res)
}

func (s *Server) resolveForm(req *formRequest) (*field.Form, *issue.Result, error) {
	if req.Form != nil {
		return req.Form, nil, nil
	}
	if !present(req.Questionnaire) {
		return nil, nil, badRequest(errors.New("form or questionnaire is required"))
	}
	q, err := questionnaire.Unmarshal(req.Questionnaire)
	if err != nil {
		return nil, nil, badRequest(err)
	}
	form, report, err := s.engine.FromQuestionnaire(q)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return form, report, nil
}

func resolveAnswers(req *formRequest) (map[string]any, error) {
	if !present(req.Response) {
		return req.Answers, nil
	}
	qr, err := questionnaire.UnmarshalResponse(req.Response)
	if err != nil {
		return nil, badRequest(err)
	}
	return questionnaire.AnswersFromResponse(qr), nil
}

func decodeFormRequest(c echo.Context) (*formRequest, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	var req formRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, badRequest(fmt.Errorf("invalid request: %w", err))
	}
	return &req, nil
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, badRequest(fmt.Errorf("read body: %w", err))
	}
	if len(body) == 0 {
		return nil, badRequest(errEmptyBody)
	}
	// Lenient field decoders would otherwise accept a broken document.
	if !json.Valid(body) {
		return nil, badRequest(errMalformedBody)
	}
	return body, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func badRequest(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}

func writeJSON(c echo.Context, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.Blob(status, echo.MIMEApplicationJSON, data)
}

func writeOutcome(c echo.Context, status int, res *issue.Result) error {
	data, err := questionnaire.MarshalOutcome(res.ToOperationOutcome())
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	return c.Blob(status, MIMEFHIRJSON, data)
}

// handleError renders every error as an OperationOutcome.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.log.Error("request failed: %v", err)
	}

	res := issue.NewResult()
	res.AddError(outcomeCode(status), msg)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = writeOutcome(c, status, res)
	}
	if err != nil {
		s.log.Error("write error response: %v", err)
	}
}

func outcomeCode(status int) issue.Code {
	switch status {
	case http.StatusBadRequest:
		return issue.CodeInvalid
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return issue.CodeNotFound
	case http.StatusRequestEntityTooLarge:
		return issue.CodeTooLong
	case http.StatusUnprocessableEntity:
		return issue.CodeProcessing
	default:
		return issue.CodeException
	}
}
