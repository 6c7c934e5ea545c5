package handlers

import (
	"net/http"
	"sort"
)

// modelEntry follows the OpenAI model listing shape so existing clients can
// discover the configured aliases
type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// modelsHandler lists the routable model aliases: one entry per configured
// slot, owned by the provider the slot points at
func (a *Application) modelsHandler(w http.ResponseWriter, r *http.Request) {
	slots := a.router.Slots()

	list := modelList{
		Object: "list",
		Data:   make([]modelEntry, 0, len(slots)),
	}
	for name, slot := range slots {
		list.Data = append(list.Data, modelEntry{
			ID:      name,
			Object:  "model",
			OwnedBy: slot.Provider,
		})
	}
	sort.Slice(list.Data, func(i, j int) bool {
		return list.Data[i].ID < list.Data[j].ID
	})

	payload, _ := json.Marshal(list)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
