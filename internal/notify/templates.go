package notify

import (
	"fmt"
	"html"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

const unassigned = "Unassigned"

// ScheduledEmail confirms a new booking to the customer.
func ScheduledEmail(detail *domain.AppointmentDetail) (Message, bool) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your service visit has been scheduled.</p>
		<ul>
			<li><strong>Date:</strong> %s</li>
			<li><strong>Slot:</strong> %s%s</li>
			<li><strong>Specialist:</strong> %s</li>
		</ul>
		<p>FieldConnect</p>`,
		esc(detail.CustomerName), esc(detail.Date), esc(string(detail.Slot)), timeSuffix(detail), esc(specialistName(detail)))
	return build(detail, fmt.Sprintf("Appointment #%d scheduled for %s", detail.ID, detail.Date), body)
}

// StatusEmail tells the customer the appointment moved to a new status.
func StatusEmail(detail *domain.AppointmentDetail) (Message, bool) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your appointment on %s (%s) is now <strong>%s</strong>.</p>
		<p>Specialist: %s</p>
		<p>FieldConnect</p>`,
		esc(detail.CustomerName), esc(detail.Date), esc(string(detail.Slot)), esc(string(detail.Status)), esc(specialistName(detail)))
	return build(detail, fmt.Sprintf("Appointment #%d is %s", detail.ID, detail.Status), body)
}

// ReminderEmail reminds the customer of an upcoming visit.
func ReminderEmail(detail *domain.AppointmentDetail) (Message, bool) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder of your service visit tomorrow, %s, in the %s slot%s.</p>
		<p>Address on file: %s</p>
		<p>Specialist: %s</p>
		<p>FieldConnect</p>`,
		esc(detail.CustomerName), esc(detail.Date), esc(string(detail.Slot)), timeSuffix(detail),
		esc(detail.CustomerAddress), esc(specialistName(detail)))
	return build(detail, fmt.Sprintf("Reminder: appointment on %s", detail.Date), body)
}

// build reports false when the customer has no email address.
func build(detail *domain.AppointmentDetail, subject, body string) (Message, bool) {
	if detail.CustomerEmail == nil || *detail.CustomerEmail == "" {
		return Message{}, false
	}
	return Message{To: *detail.CustomerEmail, Subject: subject, HTMLBody: body}, true
}

func specialistName(detail *domain.AppointmentDetail) string {
	if detail.SpecialistName == nil {
		return unassigned
	}
	return *detail.SpecialistName
}

func timeSuffix(detail *domain.AppointmentDetail) string {
	if detail.Time == nil || *detail.Time == "" {
		return ""
	}
	return " at " + esc(*detail.Time)
}

func esc(val string) string {
	return html.EscapeString(val)
}
