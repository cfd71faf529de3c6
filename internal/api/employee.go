package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/rbright/viva/internal/model"
)

type lookupResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Employee struct {
		PunchID     flexString `json:"punch_id"`
		Name        string     `json:"name"`
		Department  string     `json:"department"`
		Designation string     `json:"designation"`
		Photo       string     `json:"photo"`
	} `json:"employee"`
}

// LookupEmployee resolves a punch ID. A blank ID is rejected without a
// request; an unknown one is a NotFoundError.
func (c *Client) LookupEmployee(ctx context.Context, punchID string) (model.Employee, error) {
	punchID = strings.TrimSpace(punchID)
	if punchID == "" {
		return model.Employee{}, &ValidationError{Field: "punch_id", Message: "punch ID is required"}
	}

	query := url.Values{}
	query.Set("punch_id", punchID)

	var resp lookupResponse
	if err := c.getJSON(ctx, "lookup", "/training/employee/lookup", query, &resp); err != nil {
		return model.Employee{}, err
	}
	if !resp.Success {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "Employee not found"
		}
		return model.Employee{}, &NotFoundError{Op: "lookup", Message: msg}
	}

	employee := model.Employee{
		PunchID:     strings.TrimSpace(string(resp.Employee.PunchID)),
		Name:        strings.TrimSpace(resp.Employee.Name),
		Department:  strings.TrimSpace(resp.Employee.Department),
		Designation: strings.TrimSpace(resp.Employee.Designation),
		Photo:       resp.Employee.Photo,
	}
	if employee.PunchID == "" {
		employee.PunchID = punchID
	}
	return employee, nil
}
