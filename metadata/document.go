// Package metadata owns the file/folder index: a single JSON document
// persisted to one file, loaded at startup and rewritten in full after every
// mutation. It is the source of truth for what should exist in blob storage.
package metadata

// FileRecord describes one stored file. The JSON field names are part of the
// wire contract and match the persisted document.
type FileRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Data      string `json:"data"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	FolderID  string `json:"folderId,omitempty"`
}

// Folder is a virtual directory. Folders form a forest via ParentID; an empty
// ParentID means the folder sits at the root.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Document is the root persisted object.
type Document struct {
	Files   []FileRecord `json:"files"`
	Folders []Folder     `json:"folders"`
}

// clone returns a deep copy of the document so callers never see the store's
// internal slices.
func (d Document) clone() Document {
	out := Document{
		Files:   make([]FileRecord, len(d.Files)),
		Folders: make([]Folder, len(d.Folders)),
	}
	copy(out.Files, d.Files)
	copy(out.Folders, d.Folders)
	return out
}
