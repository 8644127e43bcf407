package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets        *service.TicketService
	assignments    *service.AssignmentService
	maxUploadBytes int64
}

// NewTicketsHandler constructs handler. maxUploadBytes <= 0 disables the
// per-file attachment limit.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, maxUploadBytes int) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments, maxUploadBytes: int64(maxUploadBytes)}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, total, err := h.tickets.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	page := repository.TicketFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: ticketSummary(&detail.TicketSummary),
		Comments:       commentList(detail.Comments),
	}})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdatePriority(c.UserContext(), actor, c.Params("id"), req.Priority, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AssignTicket POST /tickets/:id/assign. A null assignee_id unassigns.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var ticket *domain.Ticket
	if req.AssigneeID.IsNull() {
		ticket, err = h.assignments.UnassignTicket(c.UserContext(), actor, c.Params("id"), req.Version)
	} else {
		ticket, err = h.assignments.AssignTicket(c.UserContext(), actor, c.Params("id"), req.AssigneeID.String(), req.Version)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AttachEvidence POST /tickets/:id/attachment (multipart field "file").
func (h *TicketsHandler) AttachEvidence(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" required", nil)
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return apperrors.NewDomainError(apperrors.KindValidation, apperrors.CodeValidation, "file too large",
			http.StatusRequestEntityTooLarge, map[string]any{"max_bytes": h.maxUploadBytes, "size": header.Size})
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}

	ticket, err := h.tickets.AttachEvidence(c.UserContext(), actor, c.Params("id"), service.EvidenceFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:          e.ID,
			TicketID:    e.TicketID,
			ChangedByID: e.ChangedByID,
			ChangeType:  e.ChangeType,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// parseTicketQuery reads the list filters. Status and priority accept comma
// separated values; unknown literals are rejected rather than ignored.
func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitList(c.Query("status")) {
		status, ok := domain.ParseTicketStatus(part)
		if !ok {
			return filter, apperrors.NewInvalidStatus(part)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitList(c.Query("priority")) {
		priority, ok := domain.ParseTicketPriority(part)
		if !ok {
			return filter, apperrors.NewValidationError("invalid priority", map[string]any{"priority": part})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	filter.CategoryID = optionalQuery(c, "category_id")
	filter.ReporterID = optionalQuery(c, "reporter_id")
	filter.AssigneeID = optionalQuery(c, "assignee_id")

	var err error
	if filter.Limit, err = parseInt(c.Query("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseInt(c.Query("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

// parseInt returns 0 for an empty value so the store default applies.
func parseInt(val, field string) (int, error) {
	if val == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, apperrors.NewValidationError(field+" must be an integer", map[string]any{field: val})
	}
	return parsed, nil
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		CategoryID:    t.CategoryID,
		ReporterID:    t.ReporterID,
		AssigneeID:    t.AssigneeID,
		AttachmentURL: t.AttachmentURL,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

func ticketSummary(s *domain.TicketSummary) dto.TicketResponse {
	resp := ticketResponse(&s.Ticket)
	resp.Reporter = profileRef(s.Reporter)
	resp.Assignee = profileRef(s.Assignee)
	if s.Category != nil {
		resp.Category = &dto.CategoryRef{ID: s.Category.ID, Name: s.Category.Name, Color: s.Category.Color}
	}
	return resp
}
