package auth

import "github.com/mrlokans/bookverse/internal/entities"

// Permission names an action guarded by role.
type Permission int

const (
	PermBrowse Permission = iota
	PermRead
	PermReview
	PermDiscuss
	PermLibrary
	PermSubmitSupport
	PermUploadBook
	PermManageOwnBooks
	PermAuthorDashboard
	PermManageAnyBook
	PermModerate
	PermManageUsers
	PermAdminDashboard
	PermRespondSupport
	PermSupportDashboard
)

var permissionNames = map[Permission]string{
	PermBrowse:           "browse",
	PermRead:             "read",
	PermReview:           "review",
	PermDiscuss:          "discuss",
	PermLibrary:          "library",
	PermSubmitSupport:    "submit_support",
	PermUploadBook:       "upload_book",
	PermManageOwnBooks:   "manage_own_books",
	PermAuthorDashboard:  "author_dashboard",
	PermManageAnyBook:    "manage_any_book",
	PermModerate:         "moderate",
	PermManageUsers:      "manage_users",
	PermAdminDashboard:   "admin_dashboard",
	PermRespondSupport:   "respond_support",
	PermSupportDashboard: "support_dashboard",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "unknown"
}

// Allows reports whether role grants permission. Unknown roles are granted
// nothing.
func Allows(role entities.Role, p Permission) bool {
	switch role {
	case entities.RoleReader:
		switch p {
		case PermBrowse, PermRead, PermReview, PermDiscuss, PermLibrary, PermSubmitSupport:
			return true
		}
	case entities.RoleAuthor:
		switch p {
		case PermBrowse, PermRead, PermReview, PermDiscuss, PermLibrary, PermSubmitSupport,
			PermUploadBook, PermManageOwnBooks, PermAuthorDashboard:
			return true
		}
	case entities.RoleAdmin:
		switch p {
		case PermBrowse, PermRead, PermReview, PermDiscuss, PermLibrary, PermSubmitSupport,
			PermManageAnyBook, PermModerate, PermManageUsers, PermAdminDashboard:
			return true
		}
	case entities.RoleTechSupport:
		switch p {
		case PermBrowse, PermRead, PermDiscuss, PermRespondSupport, PermSupportDashboard:
			return true
		}
	}
	return false
}

// CanManageBook reports whether user may edit or delete book: its author
// when they hold PermManageOwnBooks, or anyone with PermManageAnyBook.
func CanManageBook(user *entities.User, book *entities.Book) bool {
	if user == nil || book == nil {
		return false
	}
	if Allows(user.Role, PermManageAnyBook) {
		return true
	}
	return book.AuthorID == user.ID && Allows(user.Role, PermManageOwnBooks)
}
