package lifecycle

import (
	"sort"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

func filter(appts []model.Appointment, keep func(model.Appointment) bool) []model.Appointment {
	out := make([]model.Appointment, 0)
	for _, a := range appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func ByProvider(appts []model.Appointment, providerID string) []model.Appointment {
	return filter(appts, func(a model.Appointment) bool { return a.ProviderID == providerID })
}

func ByStatus(appts []model.Appointment, providerID string, status model.Status) []model.Appointment {
	return filter(appts, func(a model.Appointment) bool {
		return a.ProviderID == providerID && a.Status == status
	})
}

// ByPhone matches the phone exactly as entered, after trimming the query.
func ByPhone(appts []model.Appointment, providerID, phone string) []model.Appointment {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return []model.Appointment{}
	}
	return filter(appts, func(a model.Appointment) bool {
		return a.ProviderID == providerID && a.ClientPhone == phone
	})
}

// Search keeps appointments whose client name contains q case-insensitively or
// whose phone contains q.
func Search(appts []model.Appointment, q string) []model.Appointment {
	q = strings.TrimSpace(q)
	if q == "" {
		return appts
	}
	lq := strings.ToLower(q)
	return filter(appts, func(a model.Appointment) bool {
		return strings.Contains(strings.ToLower(a.ClientName), lq) || strings.Contains(a.ClientPhone, q)
	})
}

// NewestFirst orders by CreatedAt descending, keeping the input order for ties.
func NewestFirst(appts []model.Appointment) []model.Appointment {
	out := append([]model.Appointment(nil), appts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ByVisitDesc orders by appointment date then time, latest first.
func ByVisitDesc(appts []model.Appointment) []model.Appointment {
	out := append([]model.Appointment(nil), appts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	return out
}

// Clients groups a provider's appointments by phone. LastVisit is the latest
// appointment date and Name comes from that latest appointment. Rows are sorted
// by LastVisit descending, then phone.
func Clients(appts []model.Appointment, providerID string) []model.Client {
	type acc struct {
		client   model.Client
		lastTime string
	}
	byPhone := map[string]*acc{}
	var order []string
	for _, a := range appts {
		if a.ProviderID != providerID {
			continue
		}
		c, ok := byPhone[a.ClientPhone]
		if !ok {
			c = &acc{client: model.Client{Phone: a.ClientPhone}}
			byPhone[a.ClientPhone] = c
			order = append(order, a.ClientPhone)
		}
		c.client.Visits++
		if a.Date > c.client.LastVisit || (a.Date == c.client.LastVisit && a.Time >= c.lastTime) {
			c.client.LastVisit = a.Date
			c.lastTime = a.Time
			c.client.Name = a.ClientName
		}
	}

	out := make([]model.Client, 0, len(order))
	for _, phone := range order {
		out = append(out, byPhone[phone].client)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastVisit != out[j].LastVisit {
			return out[i].LastVisit > out[j].LastVisit
		}
		return out[i].Phone < out[j].Phone
	})
	return out
}
