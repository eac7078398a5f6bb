// Пакет authz — предикаты прав доступа.
// Чистые функции над парой (субъект, ресурс): ни БД, ни контекста запроса.
// Правила основаны на отношениях: до отправки данные принадлежат владельцу,
// после отправки — его группе; флаги site_admin / group_admin / site_read
// дают расширенные права.
package authz

import (
	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// IsOwnGroup сообщает, принадлежит ли пользователь указанной группе.
func IsOwnGroup(user *model.User, groupID uuid.UUID) bool {
	return user.GroupID == groupID
}

// IsSelf сообщает, совпадает ли целевой пользователь с действующим.
func IsSelf(user, target *model.User) bool {
	return user.ID == target.ID
}

// HasGroupRights — административные права над группой:
// администратор сайта или администратор именно этой группы.
func HasGroupRights(user *model.User, groupID uuid.UUID) bool {
	return user.SiteAdmin || (user.GroupAdmin && IsOwnGroup(user, groupID))
}

// IsPowerGrab — попытка пользователя без прав администратора сайта
// изменить статус администратора сайта у цели.
func IsPowerGrab(user, target *model.User) bool {
	return !user.SiteAdmin && target.SiteAdmin
}

// CanSiteRead — право чтения всех данных сайта.
func CanSiteRead(user *model.User) bool {
	return user.SiteAdmin || user.SiteRead
}

// HasDataAccess — базовое правило доступа к данным.
// Для отправленных данных: право site_read или совпадение группы.
// Для неотправленных: только владелец.
func HasDataAccess(user *model.User, ownerUserID uuid.UUID, ownerGroupID *uuid.UUID, wasSubmitted bool) bool {
	if wasSubmitted {
		return user.SiteRead || (ownerGroupID != nil && *ownerGroupID == user.GroupID)
	}
	return ownerUserID == user.ID
}

// SubmitFile — право включить файл в сабмишен.
func SubmitFile(user *model.User, f *model.File) bool {
	return HasDataAccess(user, f.UserID, nil, false)
}

// ViewFile — право просматривать файл.
func ViewFile(user *model.User, f *model.File) bool {
	return HasDataAccess(user, f.UserID, f.SubmissionGroupID, f.WasSubmitted())
}

// UpdateFile — право изменять файл; после отправки файлы неизменяемы,
// поэтому право сводится к владению неотправленным файлом.
func UpdateFile(user *model.User, f *model.File) bool {
	return !f.WasSubmitted() && f.UserID == user.ID
}

// DeleteFile — право удалить файл обычным путём.
func DeleteFile(user *model.User, f *model.File) bool {
	return !f.WasSubmitted() && f.UserID == user.ID
}

// SubmitMset — право включить набор метаданных в сабмишен.
func SubmitMset(user *model.User, m *model.MetaDataSet) bool {
	return HasDataAccess(user, m.UserID, nil, false)
}

// ViewMset — право просматривать набор метаданных.
func ViewMset(user *model.User, m *model.MetaDataSet) bool {
	return HasDataAccess(user, m.UserID, m.SubmissionGroupID, m.WasSubmitted())
}

// DeleteMset — право удалить набор метаданных обычным путём.
// Допустимо только для владельца; отправленные наборы удаляются
// отдельным административным путём.
func DeleteMset(user *model.User, m *model.MetaDataSet) bool {
	return user.ID == m.UserID
}

// ViewGroupSubmissions — право просматривать сабмишены группы.
func ViewGroupSubmissions(user *model.User, groupID uuid.UUID) bool {
	return IsOwnGroup(user, groupID) || user.SiteRead
}

// DeleteSubmitted — привилегированный путь удаления отправленных данных.
func DeleteSubmitted(user *model.User) bool {
	return user.SiteAdmin
}

// CreateMetadatum и UpdateMetadatum — изменение схемы метаданных.
func CreateMetadatum(user *model.User) bool { return user.SiteAdmin }
func UpdateMetadatum(user *model.User) bool { return user.SiteAdmin }

// ViewAppSettings и UpdateAppSettings — настройки приложения.
func ViewAppSettings(user *model.User) bool   { return user.SiteAdmin }
func UpdateAppSettings(user *model.User) bool { return user.SiteAdmin }

// ViewUser — право просматривать сведения о пользователе.
// Обычный пользователь видит только себя, администратор группы — свою
// группу, site_read и site_admin — всех.
func ViewUser(user, target *model.User) bool {
	return IsSelf(user, target) || HasGroupRights(user, target.GroupID) || CanSiteRead(user)
}

// UpdateUserName — смена имени: администратор группы цели или сам пользователь.
func UpdateUserName(user, target *model.User) bool {
	return HasGroupRights(user, target.GroupID) || IsSelf(user, target)
}

// UpdateUserStatus — включение/выключение учётной записи: нужны права на
// группу цели, запрещены самодействие и захват привилегий.
func UpdateUserStatus(user, target *model.User) bool {
	return HasGroupRights(user, target.GroupID) &&
		!IsPowerGrab(user, target) &&
		!IsSelf(user, target)
}

// UpdateUserSiteAdmin — только администратор сайта и не для самого себя.
func UpdateUserSiteAdmin(user, target *model.User) bool {
	return user.SiteAdmin && !IsSelf(user, target)
}

// UpdateUserGroupAdmin — административные права над группой цели.
func UpdateUserGroupAdmin(user, target *model.User) bool {
	return HasGroupRights(user, target.GroupID)
}

// UpdateUserSiteRead — только администратор сайта.
func UpdateUserSiteRead(user *model.User) bool { return user.SiteAdmin }

// ExecuteService — право исполнять сервис.
func ExecuteService(user *model.User, svc *model.Service) bool {
	return svc.CanExecute(user.ID)
}

// ReadableMetadata отбирает определения, записи которых пользователь
// вправе читать: поля сервисов видимы только пользователям с site_read,
// остальные поля — всем.
func ReadableMetadata(user *model.User, defs []*model.MetaDatum) []*model.MetaDatum {
	if user.SiteRead {
		return defs
	}
	result := make([]*model.MetaDatum, 0, len(defs))
	for _, md := range defs {
		if md.ServiceID == nil {
			result = append(result, md)
		}
	}
	return result
}
